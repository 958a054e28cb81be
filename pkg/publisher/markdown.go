package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

const placeholder = "placeholder.png"

// BuildMarkdown は字コンテ、画像パス、シーンごとのプロンプトを1枚の絵コンテ資料にまとめるのだ。
// imagePaths はシーン番号をキーにした相対パスなのだ。
func BuildMarkdown(title string, scenes []domain.Scene, prompts, imagePaths map[int]string) string {
	var sb strings.Builder
	if title == "" {
		title = "絵コンテ"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	for _, s := range scenes {
		sb.WriteString(fmt.Sprintf("## シーン %d", s.SceneNumber))
		if s.Timestamp != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", s.Timestamp))
		}
		sb.WriteString("\n\n")

		img := imagePaths[s.SceneNumber]
		if img == "" {
			img = placeholder
		}
		sb.WriteString(fmt.Sprintf("![シーン %d](%s)\n\n", s.SceneNumber, img))

		writeItem(&sb, "秒数", s.Duration)
		writeItem(&sb, "カット割り", s.CutDescription)
		writeItem(&sb, "音声・SE・音楽", s.AudioSE)
		writeItem(&sb, "テロップ", s.Telop)
		writeItem(&sb, "ナレーション", s.Narration)
		writeItem(&sb, "演出メモ", s.DirectionMemo)
		if p := prompts[s.SceneNumber]; p != "" {
			sb.WriteString(fmt.Sprintf("\n```text\n%s\n```\n", strings.TrimSpace(p)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeItem(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	sb.WriteString(fmt.Sprintf("- %s: %s\n", label, strings.ReplaceAll(value, "\n", " ")))
}
