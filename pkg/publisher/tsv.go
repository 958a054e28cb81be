package publisher

import (
	"io"
	"strconv"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// TSVHeaders はスプレッドシート用の列見出しなのだ。
var TSVHeaders = []string{
	"シーン番号",
	"秒数",
	"カット割り（映像内容）",
	"音声・SE・音楽",
	"テロップ",
	"ナレーション",
	"演出メモ（グレーディング・アングル）",
}

// spreadsheetHeaders は画像付き絵コンテ用の列見出しなのだ。
var spreadsheetHeaders = []string{
	"シーン番号",
	"時間",
	"カット割り・映像内容",
	"絵コンテ画像URL",
	"日本語プロンプト",
	"音声・SE",
	"テロップ",
	"ナレーション",
	"演出メモ",
}

const (
	missingPrompt = "未生成"
	missingImage  = "画像未生成"
)

// FormatTSV は字コンテをスプレッドシートに貼り付けられる TSV にするのだ。
// 見出しはそのまま、各フィールドは二重引用符で囲み、中の " は "" にするのだ。末尾に改行は付けないのだ。
func FormatTSV(scenes []domain.Scene) string {
	lines := make([]string, 0, len(scenes)+1)
	lines = append(lines, strings.Join(TSVHeaders, "\t"))
	for _, s := range scenes {
		fields := []string{
			strconv.Itoa(s.SceneNumber),
			s.Duration,
			s.CutDescription,
			s.AudioSE,
			s.Telop,
			s.Narration,
			s.DirectionMemo,
		}
		for i, f := range fields {
			fields[i] = quote(f)
		}
		lines = append(lines, strings.Join(fields, "\t"))
	}
	return strings.Join(lines, "\n")
}

// WriteTSV は FormatTSV の結果を w に書くのだ。
func WriteTSV(w io.Writer, scenes []domain.Scene) error {
	_, err := io.WriteString(w, FormatTSV(scenes))
	return err
}

// FormatSpreadsheetTSV は画像 URL とプロンプトを並べた絵コンテ一覧を作るのだ。
// 画像列は =IMAGE() で表示する前提なので、引用符は付けないのだ。
func FormatSpreadsheetTSV(scenes []domain.Scene, prompts, images map[int]string) string {
	lines := make([]string, 0, len(scenes)+1)
	lines = append(lines, strings.Join(spreadsheetHeaders, "\t"))
	for _, s := range scenes {
		prompt := prompts[s.SceneNumber]
		if prompt == "" {
			prompt = missingPrompt
		}
		image := images[s.SceneNumber]
		if image == "" {
			image = missingImage
		}
		row := []string{
			strconv.Itoa(s.SceneNumber),
			s.Duration,
			s.CutDescription,
			image,
			prompt,
			s.AudioSE,
			s.Telop,
			s.Narration,
			s.DirectionMemo,
		}
		for i, f := range row {
			row[i] = flatten(f)
		}
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// flatten は引用符なしの列を壊さないよう、タブと改行を空白にするのだ。
func flatten(s string) string {
	return strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ").Replace(s)
}
