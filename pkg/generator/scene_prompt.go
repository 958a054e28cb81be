package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"
	"github.com/shouni/go-lyric-storyboard/pkg/provider"
)

// ScenePromptMaxTokens は1シーン分の画像プロンプトの最大トークン数なのだ。
const ScenePromptMaxTokens = 500

// ScenePromptService は字コンテ1シーンから絵コンテ画像用の英語プロンプトを作るのだ。
type ScenePromptService struct {
	factory provider.Factory
	prompts prompts.Builder
}

// NewScenePromptService は ScenePromptService を初期化します。factory が nil なら OpenRouter を使うのだ。
func NewScenePromptService(factory provider.Factory, pb prompts.Builder) (*ScenePromptService, error) {
	if factory == nil {
		factory = provider.NewOpenRouterFactory(ScenePromptMaxTokens)
	}
	if pb == nil {
		tpb, err := prompts.NewTextPromptBuilder()
		if err != nil {
			return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
		}
		pb = tpb
	}
	return &ScenePromptService{factory: factory, prompts: pb}, nil
}

// Generate は1回の呼び出しで1シーン分のプロンプトを返すのだ。リトライはしないのだ。
func (s *ScenePromptService) Generate(ctx context.Context, apiKey, model string, scene domain.Scene) (string, error) {
	if err := provider.ValidateOpenRouterKey(apiKey); err != nil {
		return "", err
	}
	gen, err := s.factory(ctx, apiKey)
	if err != nil {
		return "", err
	}
	return s.generateWith(ctx, gen, model, scene)
}

// GenerateAll は全シーンを順番に処理するのだ。失敗したシーンは空文字になるのだ。
func (s *ScenePromptService) GenerateAll(ctx context.Context, apiKey, model string, scenes []domain.Scene, opts batch.Options) ([]string, error) {
	if err := provider.ValidateOpenRouterKey(apiKey); err != nil {
		return nil, err
	}
	gen, err := s.factory(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "シーンごとの画像プロンプト生成を開始するのだ", "scenes", len(scenes), "delay", opts.Delay)
	return batch.Run(ctx, scenes, opts, func(ctx context.Context, _ int, scene domain.Scene) (string, error) {
		return s.generateWith(ctx, gen, model, scene)
	})
}

func (s *ScenePromptService) generateWith(ctx context.Context, gen provider.TextGenerator, model string, scene domain.Scene) (string, error) {
	p, err := s.prompts.BuildScenePrompt(scene)
	if err != nil {
		return "", err
	}
	out, err := gen.Generate(ctx, p.System, p.User, model)
	if err != nil {
		return "", fmt.Errorf("シーン %d のプロンプト生成に失敗しました: %w", scene.SceneNumber, err)
	}
	return strings.TrimSpace(out), nil
}
