package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/batch"
	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/patrickmn/go-cache"
	imgports "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-http-kit/httpkit"
)

// 絵コンテ画像の共通設定なのだ
const (
	AspectRatio = "16:9"

	ProviderPollinations = "pollinations"
	ProviderGemini       = "gemini"
	ProviderDALLE        = "dalle"
)

// Result は画像生成の結果なのだ。URL だけを返すプロバイダと、画像データを返すプロバイダがあるのだ。
type Result struct {
	URL   string
	Image *imgports.ImageResponse
}

// HasData は画像データを保持しているかどうかを返すのだ。
func (r *Result) HasData() bool {
	return r != nil && r.Image != nil && len(r.Image.Data) > 0
}

// Generator は1枚の画像を生成する契約です。
type Generator interface {
	Generate(ctx context.Context, req imgports.GenerationOptions) (*Result, error)
}

// Deps はプロバイダ間で共有する HTTP クライアントと画像キャッシュなのだ。
type Deps struct {
	// HTTPClient が nil なら Pollinations は URL だけを返すのだ。
	HTTPClient httpkit.HTTPClient
	// Cache が nil なら ProviderFor が新しく作るのだ。
	Cache    *cache.Cache
	CacheTTL time.Duration
}

func (d Deps) cacheStore() *cache.Cache {
	if d.Cache != nil {
		return d.Cache
	}
	return cache.New(DefaultCacheTTL, DefaultCacheCleanup)
}

// Providers はサポートしているプロバイダ名の一覧なのだ。
func Providers() []string {
	return []string{ProviderDALLE, ProviderGemini, ProviderPollinations}
}

// ProviderFor は名前と API キーから Generator を作るのだ。pollinations 以外はキーが必須なのだ。
// gemini は gemini-image-kit のコアが deps.Cache を使い、それ以外は Cached で包むのだ。
func ProviderFor(ctx context.Context, name, apiKey, model string, deps Deps) (Generator, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(Providers(), name) {
		return nil, &domain.ConfigError{
			Code:  domain.CodeBadRequest,
			Field: "provider",
			Msg:   fmt.Sprintf("不明な画像生成プロバイダ '%s' です。サポートされているのは [%s] です", name, strings.Join(Providers(), ", ")),
		}
	}
	if name != ProviderPollinations && strings.TrimSpace(apiKey) == "" {
		return nil, &domain.ConfigError{
			Code:  domain.CodeCredentialMissing,
			Field: "imageApiKey",
			Msg:   "画像生成APIキーが設定されていません",
		}
	}

	store := deps.cacheStore()
	switch name {
	case ProviderGemini:
		return NewGeminiImage(ctx, apiKey, model, deps.HTTPClient, store, deps.CacheTTL)
	case ProviderDALLE:
		return NewCached(NewDALLE(apiKey), store, deps.CacheTTL), nil
	default:
		return NewCached(NewPollinations(deps.HTTPClient), store, deps.CacheTTL), nil
	}
}

// GenerateAll は複数のリクエストを順番に処理するのだ。失敗したシーンは nil になるのだ。
func GenerateAll(ctx context.Context, gen Generator, reqs []imgports.GenerationOptions, opts batch.Options) ([]*Result, error) {
	slog.InfoContext(ctx, "画像の一括生成を開始するのだ", "count", len(reqs))
	return batch.Run(ctx, reqs, opts, func(ctx context.Context, i int, req imgports.GenerationOptions) (*Result, error) {
		if strings.TrimSpace(req.Prompt) == "" {
			return nil, fmt.Errorf("シーン %d のプロンプトが見つかりません", i+1)
		}
		return gen.Generate(ctx, req)
	})
}

func seedOf(req imgports.GenerationOptions) (int64, bool) {
	if req.Seed == nil {
		return 0, false
	}
	return *req.Seed, true
}
