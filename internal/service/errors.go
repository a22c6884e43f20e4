package service

import (
	"errors"
	"fmt"
	"net/http"
)

// 终止性错误码（中止整次同步并返回给调用方）
const (
	CodeAccountNotFound           = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive           = "ACCOUNT_INACTIVE"
	CodeUnsupportedProvider       = "UNSUPPORTED_PROVIDER"
	CodeMissingRefreshToken       = "MISSING_REFRESH_TOKEN"
	CodeInvalidGrant              = "INVALID_GRANT"
	CodeTokenRefreshFailed        = "TOKEN_REFRESH_FAILED"
	CodeAccountResourceUnresolved = "ACCOUNT_RESOURCE_UNRESOLVED"
	CodeLocationsSyncFailed       = "LOCATIONS_SYNC_FAILED"
	CodeForbidden                 = "FORBIDDEN"
	CodeReviewNotFound            = "REVIEW_NOT_FOUND"
	CodeInvalidRequest            = "INVALID_REQUEST"
)

// SyncError 带稳定错误码的结构化错误
type SyncError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *SyncError) Unwrap() error { return e.Err }

// Is 按错误码匹配，errors.Is(err, ErrInvalidGrant) 可用
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	return ok && t.Code == e.Code
}

// HTTPStatus 错误码对应的 HTTP 状态
func (e *SyncError) HTTPStatus() int {
	switch e.Code {
	case CodeAccountNotFound, CodeReviewNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeAccountInactive, CodeMissingRefreshToken, CodeInvalidGrant:
		return http.StatusConflict
	case CodeUnsupportedProvider, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeTokenRefreshFailed, CodeAccountResourceUnresolved, CodeLocationsSyncFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ReconnectRequired 需要用户重新授权
func (e *SyncError) ReconnectRequired() bool {
	return e.Code == CodeMissingRefreshToken || e.Code == CodeInvalidGrant
}

func newSyncError(code, message string, err error) *SyncError {
	return &SyncError{Code: code, Message: message, Err: err}
}

// 哨兵错误，仅用于 errors.Is 比较
var (
	ErrAccountNotFound           = &SyncError{Code: CodeAccountNotFound}
	ErrAccountInactive           = &SyncError{Code: CodeAccountInactive}
	ErrUnsupportedProvider       = &SyncError{Code: CodeUnsupportedProvider}
	ErrMissingRefreshToken       = &SyncError{Code: CodeMissingRefreshToken}
	ErrInvalidGrant              = &SyncError{Code: CodeInvalidGrant}
	ErrTokenRefreshFailed        = &SyncError{Code: CodeTokenRefreshFailed}
	ErrAccountResourceUnresolved = &SyncError{Code: CodeAccountResourceUnresolved}
	ErrLocationsSyncFailed       = &SyncError{Code: CodeLocationsSyncFailed}
	ErrForbidden                 = &SyncError{Code: CodeForbidden}
	ErrReviewNotFound            = &SyncError{Code: CodeReviewNotFound}
)

// AsSyncError 取出错误链中的 SyncError
func AsSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
