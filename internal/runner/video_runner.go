package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/generator"
)

// VideoRunner は動画生成モデル向けの英語プロンプトを作るためのインターフェースなのだ。
type VideoRunner interface {
	// Run は existing が空なら direct モード、あれば derived モードで生成するのだ。
	Run(ctx context.Context, lyrics string, existing []domain.Scene) (*generator.StoryboardResult[domain.VideoScene], error)
}

// VideoPromptRunner は Service の動画プロンプト生成を呼ぶだけの薄い実体なのだ。
type VideoPromptRunner struct {
	service *generator.Service
	apiKey  string
	model   string
	style   string
}

func NewVideoPromptRunner(svc *generator.Service, apiKey, model, style string) *VideoPromptRunner {
	return &VideoPromptRunner{service: svc, apiKey: apiKey, model: model, style: style}
}

func (r *VideoPromptRunner) Run(ctx context.Context, lyrics string, existing []domain.Scene) (*generator.StoryboardResult[domain.VideoScene], error) {
	req := domain.VideoPromptRequest{
		Lyrics:         lyrics,
		Style:          r.style,
		Model:          r.model,
		ExistingScenes: existing,
	}
	res, err := r.service.GenerateVideoPrompts(ctx, r.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("動画プロンプトの生成に失敗したのだ: %w", err)
	}
	if res.Warning != "" {
		slog.WarnContext(ctx, "一部のシーンだけで動画プロンプトを受理したのだ", "ratio", res.CompletionRatio)
	}
	return res, nil
}
