package domain

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"429はレート制限", &ProviderError{Status: 429}, CodeRateLimited},
		{"503はサーバー一時停止", &ProviderError{Status: 503}, CodeServerUnavailable},
		{"500はサーバー内部エラー", &ProviderError{Status: 500}, CodeServerError},
		{"401は認証エラー", &ProviderError{Status: 401}, CodeUnauthorized},
		{"404はモデル不明", &ProviderError{Status: 404}, CodeModelNotFound},
		{"タイムアウト", &ProviderError{Timeout: true}, CodeTimeout},
		{"明示コードが優先", &ProviderError{Status: 502, Code: CodeModelUnavailable}, CodeModelUnavailable},
		{"ラップされた設定エラー", fmt.Errorf("wrap: %w", &ConfigError{Code: CodeCredentialMissing}), CodeCredentialMissing},
		{"リトライ上限は最後のエラーのコード", &ExhaustedRetriesError{Attempts: 4, Last: &ProviderError{Status: 503}}, CodeServerUnavailable},
		{"シーン不足", &InsufficientScenesError{Got: 1, Expected: 5}, CodeInsufficientScenes},
		{"必須項目欠落", &MissingFieldError{Field: "prompt"}, CodeMissingField},
		{"キャンセル", context.Canceled, CodeCanceled},
		{"その他", fmt.Errorf("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("期待値 '%s', 実際の値 '%s'", tt.want, got)
			}
		})
	}
}

func TestRemediation(t *testing.T) {
	t.Run("Geminiの形式不正はAIzaSyとキー取得URLを案内するのだ", func(t *testing.T) {
		got := Remediation(CodeCredentialMalformed, Hint{Provider: ProviderGemini})
		if !strings.Contains(got, "AIzaSy") || !strings.Contains(got, GeminiAPIKeyURL) {
			t.Errorf("案内が不足しているのだ: %s", got)
		}
	})

	t.Run("OpenRouterのモデル不明は無料モデル一覧を案内するのだ", func(t *testing.T) {
		got := Remediation(CodeModelNotFound, Hint{Provider: ProviderOpenRouter, Model: "foo/bar"})
		if !strings.Contains(got, "foo/bar") || !strings.Contains(got, OpenRouterFreeListURL) {
			t.Errorf("案内が不足しているのだ: %s", got)
		}
	})

	t.Run("利用不可モデルは推奨モデルを全部並べるのだ", func(t *testing.T) {
		got := Remediation(CodeModelUnavailable, Hint{Model: "x"})
		for _, m := range RecommendedFreeModels {
			if !strings.Contains(got, m) {
				t.Errorf("%s が含まれていないのだ: %s", m, got)
			}
		}
	})

	t.Run("未知のコードは汎用メッセージなのだ", func(t *testing.T) {
		if got := Remediation(ErrorCode("nope"), Hint{}); got == "" {
			t.Error("空のメッセージは返さないのだ")
		}
	})
}

func TestUserMessage(t *testing.T) {
	err := &ExhaustedRetriesError{Attempts: 1, Last: &ProviderError{Provider: ProviderGemini, Model: "gemini-x", Status: 404}}
	got := UserMessage(err, Hint{})
	if !strings.Contains(got, "gemini-x") || !strings.Contains(got, "gemini-2.5-flash") {
		t.Errorf("プロバイダ文脈が反映されていないのだ: %s", got)
	}
}
