// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"

	"github.com/hitoshi/chatgate/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
	sessionContextKey = contextKey("session")
	// logFieldsContextKey はアクセスログ用の可変フィールドを格納するためのキー。
	logFieldsContextKey = contextKey("log_fields")
)

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// ルートゲートを通過し、有効なCookieを持つリクエストでのみokがtrueになる。
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(model.Session)
	if !ok || s.User.ID == "" {
		return model.Session{}, false
	}
	return s, true
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, s model.Session) context.Context {
	if fields, ok := ctx.Value(logFieldsContextKey).(*logFields); ok {
		fields.userID = s.User.ID
	}
	return context.WithValue(ctx, sessionContextKey, s)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.User.ID, true
}
