package model

import (
	"fmt"
	"net/http"
)

// ErrorType はエラーの種別。HTTPステータスとの対応は固定。
type ErrorType string

const (
	ErrorTypeBadRequest   ErrorType = "bad_request"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeOffline      ErrorType = "offline"
)

// Surface はエラーが発生したリソース領域。
type Surface string

const (
	SurfaceChat        Surface = "chat"
	SurfaceAuth        Surface = "auth"
	SurfaceAPI         Surface = "api"
	SurfaceStream      Surface = "stream"
	SurfaceDatabase    Surface = "database"
	SurfaceHistory     Surface = "history"
	SurfaceVote        Surface = "vote"
	SurfaceDocument    Surface = "document"
	SurfaceSuggestions Surface = "suggestions"
)

// ChatError は統一エラーフォーマットを表す。
// HTTP境界を越えるすべての失敗はこの形に正規化される。
type ChatError struct {
	Type    ErrorType
	Surface Surface
	Cause   string // 上流のメッセージなど、原因の補足
}

// NewChatError はChatErrorを生成する。
// causeは省略可能で、最初の1つだけを使用する。
func NewChatError(t ErrorType, s Surface, cause ...string) *ChatError {
	e := &ChatError{Type: t, Surface: s}
	if len(cause) > 0 {
		e.Cause = cause[0]
	}
	return e
}

// Error はerrorインターフェースを実装する。
func (e *ChatError) Error() string {
	if e.Cause == "" {
		return e.Code()
	}
	return fmt.Sprintf("[%s] %s", e.Code(), e.Cause)
}

// Code は "type:surface" 形式のエラーコードを返す。
func (e *ChatError) Code() string {
	return string(e.Type) + ":" + string(e.Surface)
}

// StatusCode はエラー種別に対応するHTTPステータスコードを返す。
func (e *ChatError) StatusCode() int {
	switch e.Type {
	case ErrorTypeBadRequest:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LogOnly はレスポンスに詳細を含めずログのみに記録すべきエラーかどうかを返す。
func (e *ChatError) LogOnly() bool {
	return e.Surface == SurfaceDatabase
}

// Message はクライアント向けのエラーメッセージを返す。
// 既存クライアントが表示する文言と一致させている。
func (e *ChatError) Message() string {
	if e.Surface == SurfaceDatabase {
		return "An error occurred while executing a database query."
	}
	if e.Type == ErrorTypeBadRequest && e.Surface != SurfaceDocument {
		return "The request couldn't be processed. Please check your input and try again."
	}

	switch e.Code() {
	case "unauthorized:auth":
		return "You need to sign in before continuing."
	case "forbidden:auth":
		return "Your account does not have access to this feature."
	case "rate_limit:chat":
		return "You have exceeded your maximum number of messages for the day. Please try again later."
	case "rate_limit:api":
		return "Too many requests. Please try again later."
	case "not_found:chat":
		return "The requested chat was not found. Please check the chat ID and try again."
	case "forbidden:chat":
		return "This chat belongs to another user. Please check the chat ID and try again."
	case "unauthorized:chat":
		return "You need to sign in to view this chat. Please sign in and try again."
	case "offline:chat":
		return "We're having trouble sending your message. Please check your internet connection and try again."
	case "not_found:document":
		return "The requested document was not found. Please check the document ID and try again."
	case "forbidden:document":
		return "This document belongs to another user. Please check the document ID and try again."
	case "unauthorized:document":
		return "You need to sign in to view this document. Please sign in and try again."
	case "bad_request:document":
		return "The request to create or update the document was invalid. Please check your input and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

// BadRequest はbad_request:apiエラーを原因付きで生成する。
func BadRequest(cause string) *ChatError {
	return NewChatError(ErrorTypeBadRequest, SurfaceAPI, cause)
}

// Unauthorized はunauthorized:<surface>エラーを生成する。
func Unauthorized(s Surface) *ChatError {
	return NewChatError(ErrorTypeUnauthorized, s)
}

// Forbidden はforbidden:<surface>エラーを生成する。
func Forbidden(s Surface) *ChatError {
	return NewChatError(ErrorTypeForbidden, s)
}

// NotFound はnot_found:<surface>エラーを生成する。
func NotFound(s Surface) *ChatError {
	return NewChatError(ErrorTypeNotFound, s)
}

// RateLimited はrate_limit:<surface>エラーを生成する。
func RateLimited(s Surface) *ChatError {
	return NewChatError(ErrorTypeRateLimit, s)
}
