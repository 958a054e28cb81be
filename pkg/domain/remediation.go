package domain

import (
	"bytes"
	"errors"
	"strings"
	"text/template"
)

const (
	ProviderGemini     = "Gemini"
	ProviderOpenRouter = "OpenRouter"

	GeminiAPIKeyURL       = "https://aistudio.google.com/app/apikey"
	OpenRouterModelsURL   = "https://openrouter.ai/models"
	OpenRouterFreeListURL = "https://openrouter.ai/models?q=free"
)

// RecommendedFreeModels は OpenRouter でモデルが使えないときに案内する代替候補なのだ。
var RecommendedFreeModels = []string{
	"tngtech/deepseek-r1t-chimera:free",
	"amazon/nova-2-lite:free",
	"openai/gpt-oss-20b:free",
}

// AlternativeGeminiModels は Gemini のモデルが見つからないときの代替候補なのだ。
var AlternativeGeminiModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-2.5-pro",
}

// Hint はテンプレートに埋め込む文脈情報なのだ。
type Hint struct {
	Provider string
	Model    string
	Got      int
	Expected int
}

type remediationData struct {
	Hint
	KeyURL       string
	FreeListURL  string
	ModelsURL    string
	FreeModels   []string
	GeminiModels []string
}

// remediationTemplates は (コード, プロバイダ) から対処方法テンプレートへの表なのだ。
// プロバイダ固有の行が無ければ "" の行を使うのだ。
var remediationTemplates = map[ErrorCode]map[string]string{
	CodeCredentialMissing: {
		ProviderGemini:     "Gemini APIキーが設定されていません。APIキー取得先: {{.KeyURL}}",
		ProviderOpenRouter: "OpenRouter APIキーが設定されていません。{{.ModelsURL}} でキーを発行してください。",
		"":                 "APIキーを指定してください。",
	},
	CodeCredentialMalformed: {
		ProviderGemini:     "Gemini APIキーは 'AIzaSy' で始まる必要があります。正しいAPIキーを {{.KeyURL}} で取得してください。",
		ProviderOpenRouter: "OpenRouter APIキーは 'sk-or-' で始まる必要があります。",
		"":                 "APIキーの形式が正しくありません。",
	},
	CodeEmptyInput: {
		"": "歌詞（または字コンテ）を入力してください。",
	},
	CodeRateLimited: {
		ProviderGemini: "APIのクォータを超えました。数秒待ってから再試行するか、{{.KeyURL}} で使用状況を確認してください。",
		"":             "リクエストが多すぎます。数分待ってから再試行するか、別の無料モデル、または有料モデルを選択してください。",
	},
	CodeServerUnavailable: {
		"": "プロバイダのサーバーが一時的に利用できません。時間をおいて再試行してください。",
	},
	CodeServerError: {
		"": "プロバイダ内部でエラーが発生しました。別のモデルで再試行してください。",
	},
	CodeTimeout: {
		"": "応答がタイムアウトしました。シーン数を減らすか、より高速なモデルを試してください。",
	},
	CodeModelNotFound: {
		ProviderGemini:     "モデル {{.Model}} が見つかりません。利用可能なモデル: {{join .GeminiModels \", \"}}",
		ProviderOpenRouter: "モデル {{.Model}} が見つかりません。利用可能なモデルを確認: {{.FreeListURL}} 推奨: {{index .FreeModels 0}}",
		"":                 "モデル {{.Model}} が見つかりません。",
	},
	CodeModelUnavailable: {
		"": "{{.Model}} が利用できません。別の無料モデルを選択してください。推奨モデル: {{join .FreeModels \", \"}}",
	},
	CodeUnauthorized: {
		ProviderGemini: "APIキーが期限切れまたは無効です。{{.KeyURL}} で新しいAPIキーを取得してください。",
		"":             "APIキーが無効です。キーと権限を確認してください。",
	},
	CodeBadRequest: {
		ProviderGemini: "リクエストが不正です。APIキーが有効か {{.KeyURL}} で確認してください。",
		"":             "リクエストが不正です。入力内容とモデル名を確認してください。",
	},
	CodeInsufficientScenes: {
		"": "生成シーン数が不足しています。より強力なモデル（{{join .FreeModels \", \"}} など）を試すか、シーン数を減らしてください。",
	},
	CodeMissingField: {
		"": "モデルの出力に必須項目が欠けていました。別のモデルで再試行してください。",
	},
	CodeCanceled: {
		"": "処理がキャンセルされました。",
	},
	CodeUnknown: {
		"": "生成中にエラーが発生しました。APIキーとモデル名を確認してください。",
	},
}

var remediationFuncs = template.FuncMap{"join": strings.Join}

// Remediation はコードとヒントから、ユーザーが取るべき対処方法を組み立てるのだ。
func Remediation(code ErrorCode, hint Hint) string {
	rows, ok := remediationTemplates[code]
	if !ok {
		rows = remediationTemplates[CodeUnknown]
	}
	text, ok := rows[hint.Provider]
	if !ok {
		text = rows[""]
	}

	tmpl, err := template.New(string(code)).Funcs(remediationFuncs).Parse(text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	data := remediationData{
		Hint:         hint,
		KeyURL:       GeminiAPIKeyURL,
		FreeListURL:  OpenRouterFreeListURL,
		ModelsURL:    OpenRouterModelsURL,
		FreeModels:   RecommendedFreeModels,
		GeminiModels: AlternativeGeminiModels,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return text
	}
	return buf.String()
}

// HintOf はエラーからプロバイダとモデルの文脈を拾うのだ。
func HintOf(err error) Hint {
	var h Hint
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		h.Provider = provErr.Provider
		h.Model = provErr.Model
	}
	var insErr *InsufficientScenesError
	if errors.As(err, &insErr) {
		h.Got, h.Expected = insErr.Got, insErr.Expected
	}
	return h
}

// UserMessage はエラー本文と対処方法をまとめた、利用者に見せる文章を返すのだ。
func UserMessage(err error, fallback Hint) string {
	if err == nil {
		return ""
	}
	hint := HintOf(err)
	if hint.Provider == "" {
		hint.Provider = fallback.Provider
	}
	if hint.Model == "" {
		hint.Model = fallback.Model
	}
	return err.Error() + "\n\n" + Remediation(CodeOf(err), hint)
}
