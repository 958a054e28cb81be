package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/imagegen"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"

	imgports "github.com/shouni/gemini-image-kit/ports"
)

// ImageRunner は、字コンテのシーンを基に絵コンテ画像を生成するためのインターフェース。
type ImageRunner interface {
	// Run はシーン番号をキーにした画像を返す。失敗したシーンは含まれない。
	Run(ctx context.Context, scenes []domain.Scene, scenePrompts map[int]string) (map[int]*imagegen.Result, error)
}

// StoryboardImageRunner は、シーン番号から決めたシードで画像を順番に生成する実体。
type StoryboardImageRunner struct {
	generator     imagegen.Generator          // 画像生成プロバイダ（キャッシュ付き）
	promptBuilder *prompts.ImagePromptBuilder // 画風の指示を付け足すビルダー
	opts          batch.Options               // 呼び出し間隔と進捗通知
}

// NewStoryboardImageRunner は、StoryboardImageRunnerの新しいインスタンスを生成して返す。
func NewStoryboardImageRunner(gen imagegen.Generator, pb *prompts.ImagePromptBuilder, opts batch.Options) *StoryboardImageRunner {
	return &StoryboardImageRunner{generator: gen, promptBuilder: pb, opts: opts}
}

func (ir *StoryboardImageRunner) Run(ctx context.Context, scenes []domain.Scene, scenePrompts map[int]string) (map[int]*imagegen.Result, error) {
	reqs := make([]imgports.GenerationOptions, len(scenes))
	for i, scene := range scenes {
		prompt, negative, seed := ir.promptBuilder.BuildScene(scene, scenePrompts[scene.SceneNumber])
		reqs[i] = imgports.GenerationOptions{
			Prompt:         prompt,
			NegativePrompt: negative,
			AspectRatio:    imagegen.AspectRatio,
			Seed:           &seed,
		}
	}

	results, err := imagegen.GenerateAll(ctx, ir.generator, reqs, ir.opts)
	if err != nil {
		return nil, fmt.Errorf("画像生成に失敗したのだ: %w", err)
	}

	out := make(map[int]*imagegen.Result, len(scenes))
	for i, res := range results {
		if res == nil {
			continue
		}
		out[scenes[i].SceneNumber] = res
	}
	slog.InfoContext(ctx, "絵コンテ画像の生成が終わったのだ", "ok", len(out), "total", len(scenes))
	return out, nil
}
