package imagegen

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	imgports "github.com/shouni/gemini-image-kit/ports"
)

const providerDALLE = "DALL-E"

// DALLE は OpenAI の Images API (dall-e-3) を使う画像生成なのだ。
type DALLE struct {
	client openai.Client
}

// NewDALLE は API キーからクライアントを作るのだ。
func NewDALLE(apiKey string, opts ...option.RequestOption) *DALLE {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &DALLE{client: openai.NewClient(opts...)}
}

// Generate は 16:9 に近い 1792x1024 の画像を生成し、URL を返すのだ。
func (d *DALLE) Generate(ctx context.Context, req imgports.GenerationOptions) (*Result, error) {
	slog.DebugContext(ctx, "DALL-E で画像を生成するのだ", "prompt_len", len(req.Prompt))
	resp, err := d.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         req.Prompt,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1792x1024,
		Quality:        openai.ImageGenerateParamsQualityStandard,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		pe := &domain.ProviderError{Provider: providerDALLE, Model: string(openai.ImageModelDallE3), Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			pe.Status = apiErr.StatusCode
			pe.Message = apiErr.Message
		}
		pe.Timeout = errors.Is(err, context.DeadlineExceeded)
		return nil, pe
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, &domain.ProviderError{Provider: providerDALLE, Code: domain.CodeModelUnavailable, Message: "応答に画像 URL が含まれていません"}
	}
	return &Result{URL: resp.Data[0].URL}, nil
}
