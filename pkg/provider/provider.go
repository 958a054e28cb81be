package provider

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"
)

const (
	// GeminiKeyPrefix は Google AI Studio が発行する API キーの接頭辞なのだ。
	GeminiKeyPrefix = "AIzaSy"
	// OpenRouterKeyPrefix は OpenRouter の API キーの接頭辞なのだ。
	OpenRouterKeyPrefix = "sk-or-"

	// DefaultTemperature はテキスト生成の温度なのだ。
	DefaultTemperature = float32(0.7)
)

// TextGenerator はシステム指示とユーザー指示から生テキストを返すテキスト生成の契約です。
type TextGenerator interface {
	Generate(ctx context.Context, system, user, model string) (string, error)
}

// Factory は呼び出しごとの API キーから TextGenerator を作るのだ。
// 認証情報は常に明示的な引数として受け取るのだ。
type Factory func(ctx context.Context, apiKey string) (TextGenerator, error)

// ValidateGeminiKey は Gemini の API キーの有無と形式を確かめるのだ。
func ValidateGeminiKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &domain.ConfigError{Code: domain.CodeCredentialMissing, Field: "apiKey", Msg: "Gemini API キーが設定されていません"}
	}
	if !strings.HasPrefix(key, GeminiKeyPrefix) {
		return &domain.ConfigError{Code: domain.CodeCredentialMalformed, Field: "apiKey", Msg: "Gemini API キーの形式が正しくありません（" + GeminiKeyPrefix + " で始まる必要があります）"}
	}
	return nil
}

// ValidateOpenRouterKey は OpenRouter の API キーの有無と形式を確かめるのだ。
func ValidateOpenRouterKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &domain.ConfigError{Code: domain.CodeCredentialMissing, Field: "apiKey", Msg: "OpenRouter API キーが設定されていません"}
	}
	if strings.HasPrefix(key, "sk-") && !strings.HasPrefix(key, OpenRouterKeyPrefix) {
		return &domain.ConfigError{Code: domain.CodeCredentialMalformed, Field: "apiKey", Msg: "OpenRouter API キーの形式が正しくありません（" + OpenRouterKeyPrefix + " で始まる必要があります）"}
	}
	return nil
}

// isTimeout はローカルのタイムアウトかどうかを判定するのだ。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
