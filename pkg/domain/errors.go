package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode は失敗の種類を表す構造化コードなのだ。
// ユーザー向けの対処方法は Remediation の表引きで決まり、メッセージ文字列の照合はしないのだ。
type ErrorCode string

const (
	CodeCredentialMissing   ErrorCode = "credential_missing"
	CodeCredentialMalformed ErrorCode = "credential_malformed"
	CodeEmptyInput          ErrorCode = "empty_input"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeServerUnavailable   ErrorCode = "server_unavailable"
	CodeTimeout             ErrorCode = "timeout"
	CodeModelNotFound       ErrorCode = "model_not_found"
	CodeModelUnavailable    ErrorCode = "model_unavailable"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeBadRequest          ErrorCode = "bad_request"
	CodeServerError         ErrorCode = "server_error"
	CodeInsufficientScenes  ErrorCode = "insufficient_scenes"
	CodeMissingField        ErrorCode = "missing_field"
	CodeCanceled            ErrorCode = "canceled"
	CodeUnknown             ErrorCode = "unknown"
)

// ConfigError は認証情報の欠落・形式不正や必須入力の欠落なのだ。リトライせず即座に返すのだ。
type ConfigError struct {
	Code  ErrorCode
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "設定エラー: " + e.Msg
	}
	return fmt.Sprintf("設定エラー (%s): %s", e.Field, e.Msg)
}

// MissingFieldError は整形式のシーンに必須フィールドが無いことを示すのだ。
type MissingFieldError struct {
	Index int // 0 始まりの配列位置
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("シーン %d に必須フィールド '%s' がありません", e.Index+1, e.Field)
}

// InsufficientScenesError は回収できたシーン数が受理しきい値を下回ったことを示すのだ。
type InsufficientScenesError struct {
	Got      int
	Expected int // 0 は件数指定なし（direct モード）
	Ratio    float64
}

func (e *InsufficientScenesError) Error() string {
	if e.Expected <= 0 {
		return "シーンを1件も回収できませんでした"
	}
	return fmt.Sprintf("生成シーン数が不足しています (%d/%dシーン = %.0f%%)", e.Got, e.Expected, e.Ratio*100)
}

// ProviderError はテキスト生成・画像生成プロバイダとの通信失敗なのだ。
type ProviderError struct {
	Provider string
	Model    string
	Status   int  // HTTP ステータス。不明なら 0
	Timeout  bool // ローカルのタイムアウト
	// Code はプロバイダが構造化エラーから判定できた場合だけ設定するのだ。空なら Status から導くのだ。
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s API タイムアウト (model=%s): %s", e.Provider, e.Model, msg)
	case e.Status != 0:
		return fmt.Sprintf("%s API エラー (HTTP %d, model=%s): %s", e.Provider, e.Status, e.Model, msg)
	default:
		return fmt.Sprintf("%s API エラー (model=%s): %s", e.Provider, e.Model, msg)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrorCode はステータスとタイムアウト情報からコードを導くのだ。
func (e *ProviderError) ErrorCode() ErrorCode {
	if e.Code != "" {
		return e.Code
	}
	if e.Timeout {
		return CodeTimeout
	}
	switch e.Status {
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CodeServerUnavailable
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeModelNotFound
	case http.StatusBadRequest:
		return CodeBadRequest
	}
	if e.Status >= 500 {
		return CodeServerError
	}
	return CodeUnknown
}

// ExhaustedRetriesError はリトライ制御が成功せずに終了したことを示すのだ。
// 終端エラーで即時中断した場合も、最後のエラーと試行回数を載せてこの型で返すのだ。
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%d 回の試行で生成に失敗しました: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// CodeOf は型付きエラーから構造化コードを取り出すのだ。
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var cfgErr *ConfigError
	var provErr *ProviderError
	var missErr *MissingFieldError
	var insErr *InsufficientScenesError
	var netErr net.Error

	switch {
	case errors.As(err, &cfgErr):
		return cfgErr.Code
	case errors.As(err, &provErr):
		return provErr.ErrorCode()
	case errors.As(err, &insErr):
		return CodeInsufficientScenes
	case errors.As(err, &missErr):
		return CodeMissingField
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	}
	return CodeUnknown
}
