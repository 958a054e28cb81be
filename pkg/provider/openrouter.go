package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// OpenRouterBaseURL は OpenAI 互換の OpenRouter エンドポイントなのだ。
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	// DefaultOpenRouterModel は動画プロンプト生成に使う既定の無料モデルなのだ。
	DefaultOpenRouterModel = "tngtech/deepseek-r1t-chimera:free"
	// DefaultMaxTokens は動画プロンプト生成の最大トークン数なのだ。長い歌詞でも途中で切れないようにするのだ。
	DefaultMaxTokens = 50000

	appReferer = "https://github.com/shouni/go-lyric-storyboard"
	appTitle   = "LyricToPrompt AI Studio"
)

// OpenRouterGenerator は openai-go を OpenRouter に向けて使うテキスト生成なのだ。
type OpenRouterGenerator struct {
	client    openai.Client
	maxTokens int64
}

// NewOpenRouterGenerator は API キーと最大トークン数からクライアントを組み立てるのだ。
func NewOpenRouterGenerator(apiKey string, maxTokens int64) *OpenRouterGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(OpenRouterBaseURL),
		option.WithHeader("HTTP-Referer", appReferer),
		option.WithHeader("X-Title", appTitle),
		// リトライは retry パッケージが一元管理するのだ
		option.WithMaxRetries(0),
	)
	return &OpenRouterGenerator{client: client, maxTokens: maxTokens}
}

// NewOpenRouterFactory は最大トークン数を固定した Factory を返すのだ。
func NewOpenRouterFactory(maxTokens int64) Factory {
	return func(_ context.Context, apiKey string) (TextGenerator, error) {
		return NewOpenRouterGenerator(apiKey, maxTokens), nil
	}
}

// Generate は Chat Completions API を呼び出し、最初の選択肢の本文を返すのだ。
func (g *OpenRouterGenerator) Generate(ctx context.Context, system, user, model string) (string, error) {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	slog.DebugContext(ctx, "OpenRouter API を呼び出すのだ", "model", model, "max_tokens", g.maxTokens)
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(float64(DefaultTemperature)),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		return "", classifyOpenAI(err, domain.ProviderOpenRouter, model)
	}
	if len(completion.Choices) == 0 {
		return "", &domain.ProviderError{
			Provider: domain.ProviderOpenRouter,
			Model:    model,
			Code:     domain.CodeModelUnavailable,
			Message:  "応答に選択肢が含まれていません",
		}
	}
	return completion.Choices[0].Message.Content, nil
}

// classifyOpenAI は openai-go の失敗を ProviderError に変換するのだ。
// OpenRouter は「No endpoints found」を 404 で返すので、モデル未検出として扱われるのだ。
func classifyOpenAI(err error, providerName, model string) error {
	pe := &domain.ProviderError{Provider: providerName, Model: model, Err: err}
	if isTimeout(err) {
		pe.Timeout = true
		return pe
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return pe
	}
	pe.Status = apiErr.StatusCode
	pe.Message = apiErr.Message
	if pe.Message == "" {
		pe.Message = fmt.Sprintf("HTTP %d", apiErr.StatusCode)
	}
	return pe
}
