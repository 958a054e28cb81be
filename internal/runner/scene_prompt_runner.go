package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/generator"
)

// ScenePromptRunner は字コンテの各シーンから画像プロンプトを作るためのインターフェースなのだ。
type ScenePromptRunner interface {
	// Run はシーン番号をキーにしたプロンプトを返すのだ。失敗したシーンは含まれないのだ。
	Run(ctx context.Context, scenes []domain.Scene) (map[int]string, error)
}

// BatchScenePromptRunner はシーンを1件ずつ間隔を空けて処理するのだ。
type BatchScenePromptRunner struct {
	service *generator.ScenePromptService
	apiKey  string
	model   string
	opts    batch.Options
}

func NewBatchScenePromptRunner(svc *generator.ScenePromptService, apiKey, model string, opts batch.Options) *BatchScenePromptRunner {
	return &BatchScenePromptRunner{service: svc, apiKey: apiKey, model: model, opts: opts}
}

func (r *BatchScenePromptRunner) Run(ctx context.Context, scenes []domain.Scene) (map[int]string, error) {
	results, err := r.service.GenerateAll(ctx, r.apiKey, r.model, scenes, r.opts)
	if err != nil {
		return nil, fmt.Errorf("画像プロンプトの一括生成に失敗したのだ: %w", err)
	}

	out := make(map[int]string, len(scenes))
	for i, p := range results {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out[scenes[i].SceneNumber] = p
	}
	if len(out) < len(scenes) {
		slog.WarnContext(ctx, "一部のシーンで画像プロンプトが作れなかったのだ", "ok", len(out), "total", len(scenes))
	}
	return out, nil
}
