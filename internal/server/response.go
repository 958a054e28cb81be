package server

import (
	"net/http"

	"github.com/shouni/go-lyric-storyboard/pkg/domain"

	"github.com/gin-gonic/gin"
)

// ErrorBody は失敗時に返す JSON なのだ。
type ErrorBody struct {
	Error       string           `json:"error"`
	Remediation string           `json:"remediation"`
	Code        domain.ErrorCode `json:"code"`
	RequestID   string           `json:"requestId,omitempty"`
}

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeCredentialMissing:   http.StatusBadRequest,
	domain.CodeCredentialMalformed: http.StatusBadRequest,
	domain.CodeEmptyInput:          http.StatusBadRequest,
	domain.CodeBadRequest:          http.StatusBadRequest,
	domain.CodeMissingField:        http.StatusBadRequest,
	domain.CodeUnauthorized:        http.StatusUnauthorized,
	domain.CodeRateLimited:         http.StatusTooManyRequests,
	domain.CodeTimeout:             http.StatusGatewayTimeout,
	domain.CodeCanceled:            http.StatusRequestTimeout,
	domain.CodeServerUnavailable:   http.StatusBadGateway,
	domain.CodeServerError:         http.StatusBadGateway,
	domain.CodeModelNotFound:       http.StatusBadGateway,
	domain.CodeModelUnavailable:    http.StatusBadGateway,
	domain.CodeInsufficientScenes:  http.StatusBadGateway,
}

// StatusFor はエラーコードに対応する HTTP ステータスなのだ。
func StatusFor(code domain.ErrorCode) int {
	if st, ok := statusByCode[code]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// errorBody は err を利用者向けの本文に変換するのだ。provider はエラーに文脈が無いときの補いなのだ。
func errorBody(err error, provider string) ErrorBody {
	code := domain.CodeOf(err)
	hint := domain.HintOf(err)
	if hint.Provider == "" {
		hint.Provider = provider
	}
	return ErrorBody{
		Error:       err.Error(),
		Remediation: domain.Remediation(code, hint),
		Code:        code,
	}
}

func writeError(c *gin.Context, err error, provider string) {
	body := errorBody(err, provider)
	body.RequestID = c.GetString(requestIDKey)
	c.JSON(StatusFor(body.Code), body)
}

func badRequest(c *gin.Context, field, msg string) {
	writeError(c, &domain.ConfigError{Code: domain.CodeBadRequest, Field: field, Msg: msg}, "")
}
