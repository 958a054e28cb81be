package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

// maxTruncationAttempts は途中で切れた配列を閉じ直すときに遡る '}' の上限数なのだ。
const maxTruncationAttempts = 32

// Stage はどの段階でパースに成功したかを表すのだ。
type Stage int

const (
	StageFailed Stage = iota
	StageStrict
	StageFenced
	StageSliced
	StageTruncated
)

func (s Stage) String() string {
	switch s {
	case StageStrict:
		return "strict"
	case StageFenced:
		return "fenced"
	case StageSliced:
		return "sliced"
	case StageTruncated:
		return "truncated"
	default:
		return "failed"
	}
}

// ParseError はパース失敗の詳細なのだ。パッケージの外には出さず、空のシーン列に落とし込むのだ。
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("JSON配列のパースに失敗しました (%s): %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse はモデルの生テキストからシーン配列を回収するのだ。決して失敗を返さないのだ。
// 何も回収できなければ空のスライスを返し、件数不足の判定は呼び出し側に任せるのだ。
func Parse(raw string) []domain.SceneDraft {
	drafts, _ := Repair(raw)
	return drafts
}

// Repair は Parse と同じ処理を行い、成功した段階も返すのだ。
func Repair(raw string) ([]domain.SceneDraft, Stage) {
	text := strings.TrimSpace(raw)

	drafts, err := decode(text, StageStrict)
	if err == nil {
		return drafts, StageStrict
	}
	slog.Debug("厳密なJSONパースに失敗したので修復を試みるのだ", "error", err)

	stage := StageSliced
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		if drafts, err := decode(m[1], StageFenced); err == nil {
			return drafts, StageFenced
		}
	}
	// 最初のフェンスが配列とは限らないので、記号だけ外して全文から配列を探すのだ
	text = codeFenceMarkerRegex.ReplaceAllString(text, "")

	start := strings.IndexByte(text, '[')
	if start < 0 {
		slog.Debug("JSON配列の開始が見つからないのだ")
		return []domain.SceneDraft{}, StageFailed
	}

	if end := strings.LastIndexByte(text, ']'); end > start {
		if drafts, err := decode(text[start:end+1], stage); err == nil {
			return drafts, stage
		}
	}

	// 出力トークン上限で配列が途中で切れた場合、最後に閉じたオブジェクトまでで配列を閉じ直すのだ
	body := text[start:]
	cut := len(body)
	for range maxTruncationAttempts {
		cut = strings.LastIndexByte(body[:cut], '}')
		if cut < 0 {
			break
		}
		drafts, err := decode(body[:cut+1]+"]", StageTruncated)
		if err == nil {
			slog.Debug("途中で切れたJSON配列を修復したのだ", "scenes", len(drafts))
			return drafts, StageTruncated
		}
	}

	slog.Debug("JSON修復に失敗したのだ。空のシーン列を返すのだ")
	return []domain.SceneDraft{}, StageFailed
}

// decode は JSON 配列だけを受け付けるのだ。null やオブジェクトは失敗扱いなのだ。
func decode(text string, stage Stage) ([]domain.SceneDraft, error) {
	if !strings.HasPrefix(text, "[") {
		return nil, &ParseError{Stage: stage, Err: fmt.Errorf("配列ではありません")}
	}
	var drafts []domain.SceneDraft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, &ParseError{Stage: stage, Err: err}
	}
	if drafts == nil {
		drafts = []domain.SceneDraft{}
	}
	return drafts, nil
}

// DecodeStoryboard は保存済みの字コンテJSON（シーン配列）を読み込み、検証済みシーンに変換するのだ。
// 外部ファイルも信用せず、モデル出力と同じ修復と変換を通すのだ。
func DecodeStoryboard(r io.Reader) ([]domain.Scene, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("字コンテの読み込みに失敗しました: %w", err)
	}

	drafts := Parse(string(raw))
	if len(drafts) == 0 {
		return nil, &domain.ConfigError{Code: domain.CodeEmptyInput, Field: "storyboard", Msg: "字コンテにシーンがありません"}
	}

	scenes := make([]domain.Scene, 0, len(drafts))
	for i, d := range drafts {
		s, err := d.ToScene(i)
		if err != nil {
			return nil, fmt.Errorf("字コンテの検証に失敗しました: %w", err)
		}
		scenes = append(scenes, s)
	}
	return scenes, nil
}
