package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
	"github.com/shouni/go-lyric-storyboard/pkg/prompts"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// DefaultGeminiModel は字コンテ生成に使う既定のモデルなのだ。
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator は go-gemini-client を使うテキスト生成なのだ。
// クライアントはシステム指示を別に持たないので、指示は1つの文字列にまとめて送るのだ。
type GeminiGenerator struct {
	client gemini.ContentGenerator
}

// NewGeminiGenerator は既存のクライアントを包むのだ。
func NewGeminiGenerator(client gemini.ContentGenerator) (*GeminiGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini クライアントは必須です")
	}
	return &GeminiGenerator{client: client}, nil
}

// NewGeminiFactory は API キーごとに Gemini クライアントを初期化する Factory を返すのだ。
func NewGeminiFactory() Factory {
	return func(ctx context.Context, apiKey string) (TextGenerator, error) {
		clientConfig := gemini.Config{
			APIKey:      apiKey,
			Temperature: genai.Ptr(DefaultTemperature),
		}
		aiClient, err := gemini.NewClient(ctx, clientConfig)
		if err != nil {
			return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
		}
		return NewGeminiGenerator(aiClient)
	}
}

// Generate は Gemini API を呼び出し、応答テキストを返すのだ。
func (g *GeminiGenerator) Generate(ctx context.Context, system, user, model string) (string, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	prompt := prompts.PromptText{System: system, User: user}.Combined()

	slog.DebugContext(ctx, "Gemini API を呼び出すのだ", "model", model, "prompt_len", len(prompt))
	resp, err := g.client.GenerateContent(ctx, model, prompt)
	if err != nil {
		return "", classifyGemini(err, model)
	}
	return resp.Text, nil
}

// classifyGemini は Gemini の失敗を ProviderError に変換するのだ。
func classifyGemini(err error, model string) error {
	pe := &domain.ProviderError{Provider: domain.ProviderGemini, Model: model, Err: err}
	if isTimeout(err) {
		pe.Timeout = true
		return pe
	}

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
	// gRPC 風のステータス名しか無い場合もあるのだ
	if pe.Status == 0 {
		switch apiErr.Status {
		case "RESOURCE_EXHAUSTED":
			pe.Code = domain.CodeRateLimited
		case "UNAVAILABLE":
			pe.Code = domain.CodeServerUnavailable
		case "NOT_FOUND":
			pe.Code = domain.CodeModelNotFound
		case "PERMISSION_DENIED", "UNAUTHENTICATED":
			pe.Code = domain.CodeUnauthorized
		case "DEADLINE_EXCEEDED":
			pe.Timeout = true
		}
	}
	return pe
}
