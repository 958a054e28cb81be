package generator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/parser"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"
	"github.com/shouni/go-lyric-storyboard/pkg/provider"
	"github.com/shouni/go-lyric-storyboard/pkg/retry"
	"github.com/shouni/go-lyric-storyboard/pkg/timestamp"
	"github.com/shouni/go-lyric-storyboard/pkg/validator"
)

// StoryboardResult は検証済みのシーン列と生成の経過なのだ。
type StoryboardResult[T any] struct {
	Scenes          []T     `json:"scenes"`
	CompletionRatio float64 `json:"completionRatio"`
	Warning         string  `json:"warning,omitempty"`
	Attempts        int     `json:"attempts"`
}

// Args は Service の依存関係なのだ。
type Args struct {
	Gemini     provider.Factory // 字コンテ生成用
	OpenRouter provider.Factory // 動画プロンプト生成用
	Prompts    prompts.Builder  // nil なら埋め込みテンプレートから作るのだ
	Policy     *retry.Policy    // nil なら retry.DefaultPolicy なのだ。MaxRetries 0 でリトライ無しなのだ
	Threshold  float64
}

// Service は字コンテと動画プロンプトの生成を束ねる窓口なのだ。
// プロンプト構築、応答の修復、件数の検証、リトライ、タイムスタンプ付与をこの順で組み合わせるのだ。
type Service struct {
	gemini     provider.Factory
	openRouter provider.Factory
	prompts    prompts.Builder
	policy     retry.Policy
	validate   validator.Options
}

// New は依存関係を検証して Service を初期化します。
func New(args Args) (*Service, error) {
	if args.Gemini == nil {
		return nil, fmt.Errorf("Gemini の Factory は必須です")
	}
	if args.OpenRouter == nil {
		return nil, fmt.Errorf("OpenRouter の Factory は必須です")
	}

	pb := args.Prompts
	if pb == nil {
		tpb, err := prompts.NewTextPromptBuilder()
		if err != nil {
			return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
		}
		pb = tpb
	}

	policy := retry.DefaultPolicy()
	if args.Policy != nil {
		policy = *args.Policy
	}

	return &Service{
		gemini:     args.Gemini,
		openRouter: args.OpenRouter,
		prompts:    pb,
		policy:     policy,
		validate:   validator.Options{Threshold: args.Threshold},
	}, nil
}

// GenerateStoryboard は歌詞から日本語の字コンテを生成するのだ。
// 件数の指定は無く、1件以上回収できれば受理するのだ。タイムスタンプは付けないのだ。
func (s *Service) GenerateStoryboard(ctx context.Context, cfg domain.GenerationConfig) (*StoryboardResult[domain.Scene], error) {
	if err := provider.ValidateGeminiKey(cfg.APIKey); err != nil {
		return nil, err
	}
	p, err := s.prompts.BuildStoryboard(cfg)
	if err != nil {
		return nil, err
	}

	gen, err := s.gemini(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = provider.DefaultGeminiModel
	}
	slog.InfoContext(ctx, "字コンテの生成を開始するのだ",
		"model", model,
		"style", cfg.VisualStyle,
		"lines", prompts.CountLines(cfg.Lyrics))

	return run(ctx, s, gen, p, model, 0, validator.StoryboardScene)
}

// GenerateVideoPrompts は英語の動画プロンプトを生成するのだ。
// 既存の字コンテがあればそのシーン数ちょうどを期待し、結果には累積タイムスタンプを付けるのだ。
func (s *Service) GenerateVideoPrompts(ctx context.Context, apiKey string, req domain.VideoPromptRequest) (*StoryboardResult[domain.VideoScene], error) {
	if err := provider.ValidateOpenRouterKey(apiKey); err != nil {
		return nil, err
	}
	p, mode, err := s.prompts.BuildVideo(req)
	if err != nil {
		return nil, err
	}

	gen, err := s.openRouter(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = provider.DefaultOpenRouterModel
	}
	expected := len(req.ExistingScenes)
	slog.InfoContext(ctx, "動画プロンプトの生成を開始するのだ",
		"model", model,
		"mode", mode,
		"expected_scenes", expected)

	res, err := run(ctx, s, gen, p, model, expected, validator.VideoScene)
	if err != nil {
		return nil, err
	}
	res.Scenes = timestamp.ApplyVideo(res.Scenes)
	return res, nil
}

// run は1回分の生成を「呼び出し、修復、検証」として組み立て、リトライ制御に渡すのだ。
func run[T any](
	ctx context.Context,
	s *Service,
	gen provider.TextGenerator,
	p prompts.PromptText,
	model string,
	expected int,
	convert validator.Converter[T],
) (*StoryboardResult[T], error) {
	attempt := func(ctx context.Context, i int) (validator.Result[T], string, error) {
		raw, err := gen.Generate(ctx, p.System, p.User, model)
		if err != nil {
			return validator.Result[T]{}, "", err
		}

		drafts, stage := parser.Repair(raw)
		if stage != parser.StageStrict {
			slog.DebugContext(ctx, "応答を修復して読み取ったのだ", "attempt", i, "stage", stage.String())
		}
		res, err := validator.Validate(drafts, expected, convert, s.validate)
		return res, raw, err
	}

	res, report, err := retry.Do(ctx, s.policy, attempt)
	if err != nil {
		return nil, err
	}
	if res.Partial() {
		slog.WarnContext(ctx, res.Warning,
			"expected", expected,
			"got", len(res.Scenes),
			"completion_ratio", res.CompletionRatio)
	}

	slog.InfoContext(ctx, "生成が完了したのだ",
		"scenes", len(res.Scenes),
		"attempts", len(report.Attempts),
		"retryable_failures", report.RetryableFailures())

	return &StoryboardResult[T]{
		Scenes:          res.Scenes,
		CompletionRatio: res.CompletionRatio,
		Warning:         res.Warning,
		Attempts:        len(report.Attempts),
	}, nil
}
