package publisher

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/timestamp"
)

// WriteVideoJSON は動画プロンプトを2スペースでインデントした JSON 配列として書くのだ。
func WriteVideoJSON(w io.Writer, scenes []domain.VideoScene) error {
	if scenes == nil {
		scenes = []domain.VideoScene{}
	}
	b, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return fmt.Errorf("動画プロンプトの JSON 変換に失敗しました: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// WriteStoryboardJSON は字コンテを JSON 配列として書くのだ。video コマンドの入力にそのまま使えるのだ。
func WriteStoryboardJSON(w io.Writer, scenes []domain.Scene) error {
	if scenes == nil {
		scenes = []domain.Scene{}
	}
	b, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return fmt.Errorf("字コンテの JSON 変換に失敗しました: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// ComfyUIExport は字コンテとシーンごとのプロンプトを ComfyUI 用の動画シーン列に変換するのだ。
// プロンプトがあるシーンだけを字コンテの順で並べ、秒数の数字から累積タイムスタンプを付けるのだ。
func ComfyUIExport(scenes []domain.Scene, prompts map[int]string) []domain.VideoScene {
	out := make([]domain.VideoScene, 0, len(prompts))
	durations := make([]int, 0, len(prompts))
	for _, s := range scenes {
		p, ok := prompts[s.SceneNumber]
		if !ok || p == "" {
			continue
		}
		d := s.DurationSeconds()
		durations = append(durations, d)
		out = append(out, domain.VideoScene{
			Scene:           s.SceneNumber,
			DurationSeconds: d,
			Prompt:          p,
			NegativePrompt:  domain.DefaultNegativePrompt,
		})
	}
	for i, ts := range timestamp.Ranges(durations) {
		out[i].Timestamp = ts
	}
	return out
}
