package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-lyric-storyboard/internal/config"
	"github.com/shouni/go-lyric-storyboard/internal/runner"
	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/generator"
	"github.com/shouni/go-lyric-storyboard/pkg/imagegen"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"
	"github.com/shouni/go-lyric-storyboard/pkg/provider"
	"github.com/shouni/go-lyric-storyboard/pkg/publisher"
	"github.com/shouni/go-lyric-storyboard/pkg/retry"
	"github.com/shouni/go-lyric-storyboard/pkg/store"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-http-kit/httpkit"
)

// 画像キャッシュの期間なのだ。同じシーンを描き直したときに再利用するのだ。
const (
	defaultImageCacheTTL     = 30 * time.Minute
	defaultImageCacheCleanup = 1 * time.Hour
)

// Build は設定から AppContext を組み立てるのだ。外部への接続はここでまとめて行うのだ。
func Build(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}

	svc, err := InitializeService(cfg, pb)
	if err != nil {
		return nil, err
	}

	scenePrompts, err := generator.NewScenePromptService(provider.NewOpenRouterFactory(generator.ScenePromptMaxTokens), pb)
	if err != nil {
		return nil, fmt.Errorf("ScenePromptService の初期化に失敗しました: %w", err)
	}

	st, err := InitializeStore(cfg)
	if err != nil {
		return nil, err
	}

	objectWriter, err := InitializeObjectWriter(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := httpkit.New(cfg.Options.HTTPTimeout)
	imgCache := cache.New(defaultImageCacheTTL, defaultImageCacheCleanup)

	appCtx := NewAppContext(cfg, svc, scenePrompts, pb, st, objectWriter, httpClient, imgCache)
	return &appCtx, nil
}

// InitializeService はリトライ方針とフォールバックしきい値をフラグから決めて Service を作るのだ。
func InitializeService(cfg *config.Config, pb prompts.Builder) (*generator.Service, error) {
	policy := RetryPolicy(cfg.Options)

	svc, err := generator.New(generator.Args{
		Gemini:     provider.NewGeminiFactory(),
		OpenRouter: provider.NewOpenRouterFactory(cfg.MaxTokens),
		Prompts:    pb,
		Policy:     &policy,
		Threshold:  cfg.Options.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("生成サービスの初期化に失敗しました: %w", err)
	}
	return svc, nil
}

// RetryPolicy はフラグからリトライ方針を作るのだ。
// フラグの既定値が retry.DefaultPolicy と同じなので、0 はリトライ無しとしてそのまま使うのだ。
func RetryPolicy(opts config.GenerateOptions) retry.Policy {
	return retry.Policy{
		MaxRetries: max(opts.MaxRetries, 0),
		Backoff:    max(opts.RetryDelay, 0),
	}
}

// InitializeStore は DSN があれば MySQL、無ければメモリ上の Store を返すのだ。
func InitializeStore(cfg *config.Config) (store.Store, error) {
	if cfg.MySQLDSN == "" {
		slog.Debug("MYSQL_DSN が無いのでメモリ上に保存するのだ")
		return store.NewMemoryStore(), nil
	}
	st, err := store.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトストアの初期化に失敗しました: %w", err)
	}
	return st, nil
}

// InitializeObjectWriter は MinIO が設定されているときだけクライアントを作るのだ。
func InitializeObjectWriter(cfg *config.Config) (publisher.OutputWriter, error) {
	if cfg.Minio.Endpoint == "" {
		return nil, nil
	}
	w, err := publisher.NewMinioWriter(publisher.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("オブジェクトストレージの初期化に失敗しました: %w", err)
	}
	return w, nil
}

// BatchOptions は一括処理の間隔をフラグから決めるのだ。
func (a *AppContext) BatchOptions(observer batch.Observer) batch.Options {
	delay := a.Options.BatchDelay
	if delay <= 0 {
		delay = config.DefaultBatchDelay
	}
	return batch.Options{Delay: delay, Observer: observer}
}

// BuildStoryboardRunner は字コンテ生成を担当する Runner を構築します。
func BuildStoryboardRunner(appCtx *AppContext) runner.StoryboardRunner {
	model := appCtx.Options.Model
	if model == "" {
		model = appCtx.Config.GeminiModel
	}
	return runner.NewLyricStoryboardRunner(appCtx.Service, appCtx.Config.GeminiAPIKey, model, appCtx.Options)
}

// BuildVideoRunner は動画プロンプト生成を担当する Runner を構築します。
func BuildVideoRunner(appCtx *AppContext) runner.VideoRunner {
	model := appCtx.Options.Model
	if model == "" {
		model = appCtx.Config.OpenRouterModel
	}
	return runner.NewVideoPromptRunner(appCtx.Service, appCtx.Config.OpenRouterAPIKey, model, appCtx.Options.Style)
}

// BuildScenePromptRunner はシーン画像プロンプトの一括生成を担当する Runner を構築します。
func BuildScenePromptRunner(appCtx *AppContext, observer batch.Observer) runner.ScenePromptRunner {
	return runner.NewBatchScenePromptRunner(
		appCtx.ScenePrompts,
		appCtx.Config.OpenRouterAPIKey,
		appCtx.Config.ScenePromptModel,
		appCtx.BatchOptions(observer),
	)
}

// BuildImageRunner は絵コンテ画像の生成を担当する Runner を構築します。
func BuildImageRunner(ctx context.Context, appCtx *AppContext, observer batch.Observer) (runner.ImageRunner, error) {
	gen, err := InitializeImageGenerator(ctx, appCtx)
	if err != nil {
		return nil, err
	}
	return runner.NewStoryboardImageRunner(
		gen,
		prompts.NewImagePromptBuilder(appCtx.Config.ImagePromptSuffix),
		appCtx.BatchOptions(observer),
	), nil
}

// BuildPublisherRunner は出力先に合う Writer を選んで Runner を構築します。
func BuildPublisherRunner(appCtx *AppContext) (runner.PublisherRunner, error) {
	pub, err := InitializePublisher(appCtx, appCtx.Options.OutputDir)
	if err != nil {
		return nil, err
	}
	return runner.NewDefaultPublisherRunner(appCtx.Options, pub), nil
}

// InitializePublisher は出力先パスに合わせた Publisher を作るのだ。
func InitializePublisher(appCtx *AppContext, outPath string) (*publisher.Publisher, error) {
	if outPath == "" {
		outPath = config.DefaultOutputDir
	}
	w, err := publisher.ResolveWriter(outPath, appCtx.objectWriter)
	if err != nil {
		return nil, err
	}
	return publisher.New(w)
}

// InitializeImageGenerator は共通の HTTP クライアントとキャッシュで ImageGenerator を初期化します。
func InitializeImageGenerator(ctx context.Context, appCtx *AppContext) (imagegen.Generator, error) {
	name := appCtx.Options.ImageProvider
	if name == "" {
		name = appCtx.Config.ImageProvider
	}
	apiKey := appCtx.Config.ImageAPIKey
	if apiKey == "" && name == imagegen.ProviderGemini {
		apiKey = appCtx.Config.GeminiAPIKey
	}

	gen, err := imagegen.ProviderFor(ctx, name, apiKey, appCtx.Config.ImageModel, imagegen.Deps{
		HTTPClient: appCtx.httpClient,
		Cache:      appCtx.imageCache,
		CacheTTL:   defaultImageCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("画像生成プロバイダの初期化に失敗したのだ: %w", err)
	}
	return gen, nil
}
