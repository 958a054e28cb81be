package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/patrickmn/go-cache"
	imggen "github.com/shouni/gemini-image-kit/generator"
	imgports "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"
)

// DefaultGeminiImageModel は絵コンテ画像用の Gemini モデルなのだ。
const DefaultGeminiImageModel = "gemini-2.5-flash-image"

// GeminiImage は gemini-image-kit の生成器で1枚ずつ絵コンテ画像を作るのだ。
type GeminiImage struct {
	gen   imgports.ImageGenerator
	model string
}

// NewGeminiImage は API キーから Gemini クライアントと画像生成コアを初期化するのだ。
// store はコアの File API キャッシュとして使われるのだ。
func NewGeminiImage(ctx context.Context, apiKey, model string, httpClient httpkit.HTTPClient, store *cache.Cache, ttl time.Duration) (*GeminiImage, error) {
	if model == "" {
		model = DefaultGeminiImageModel
	}
	if httpClient == nil {
		httpClient = httpkit.New(httpkit.DefaultHTTPTimeout)
	}
	if store == nil {
		store = cache.New(DefaultCacheTTL, DefaultCacheCleanup)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	aiClient, err := gemini.NewClient(ctx, gemini.Config{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	core, err := imggen.NewGeminiImageCore(
		aiClient,
		streamReader{downloader: httpClient},
		httpClient,
		store,
		ttl,
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗しました: %w", err)
	}

	gen, err := imggen.NewGeminiGenerator(core)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗しました: %w", err)
	}
	return newGeminiImage(gen, model), nil
}

func newGeminiImage(gen imgports.ImageGenerator, model string) *GeminiImage {
	return &GeminiImage{gen: gen, model: model}
}

// Generate は参照画像なしの1パネルとして画像を生成するのだ。
func (g *GeminiImage) Generate(ctx context.Context, req imgports.GenerationOptions) (*Result, error) {
	if req.Model == "" {
		req.Model = g.model
	}
	if req.AspectRatio == "" {
		req.AspectRatio = AspectRatio
	}

	slog.DebugContext(ctx, "Gemini で画像を生成するのだ", "model", req.Model, "seed", imgports.DereferenceSeed(req.Seed))
	resp, err := g.gen.GenerateMangaPanel(ctx, imgports.ImagePanelRequest{GenerationOptions: req})
	if err != nil {
		return nil, classifyGeminiImage(err, req.Model)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, &domain.ProviderError{
			Provider: domain.ProviderGemini,
			Model:    req.Model,
			Code:     domain.CodeModelUnavailable,
			Message:  "応答に画像データが含まれていません",
		}
	}
	return &Result{Image: resp}, nil
}

func classifyGeminiImage(err error, model string) error {
	pe := &domain.ProviderError{Provider: domain.ProviderGemini, Model: model, Err: err}
	pe.Timeout = errors.Is(err, context.DeadlineExceeded)

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return pe
	}
	pe.Status = apiErr.Code
	pe.Message = apiErr.Message
	return pe
}

// streamReader は httpkit のダウンローダーを gemini-image-kit の ContentReader として使うのだ。
type streamReader struct {
	downloader imgports.Downloader
}

func (r streamReader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return r.downloader.GetStream(ctx, uri)
}
