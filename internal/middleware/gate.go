package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/chatgate/internal/model"
)

// LoginPath はログインページのパス。
const LoginPath = "/login"

// publicPrefixes は認証不要のパスプレフィックス。
// /login と /register は前方一致で、/login/callback なども対象になる。
var publicPrefixes = []string{
	"/login",
	"/register",
	"/_next/static",
	"/_next/image",
	"/static/",
	"/favicon.ico",
	"/sitemap.xml",
	"/robots.txt",
	"/api/auth/session",
	"/api/auth/signout",
}

// SessionReader はセッションの読み取りに必要なインターフェース。
// session.Storeが実装する。
type SessionReader interface {
	Read(w http.ResponseWriter, r *http.Request) (model.Session, bool)
}

// IsPublicPath は認証なしでアクセスできるパスかどうかを返す。
func IsPublicPath(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// LoginRedirectURL は未認証時のリダイレクト先を返す。
// 元のリクエストURIはredirectUrlクエリにエスケープして埋め込む。
func LoginRedirectURL(r *http.Request) string {
	return LoginPath + "?redirectUrl=" + url.QueryEscape(r.URL.RequestURI())
}

// NewRouteGate はCookieからセッションを読み取り、保護対象パスへの
// 未認証リクエストをログインページへリダイレクトするミドルウェアを返す。
// /pingはセッションを見ずにpongを返す。
// セッションがあれば公開パスでもコンテキストに注入する。
func NewRouteGate(reader SessionReader, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ping" {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("pong"))
				return
			}

			sess, ok := reader.Read(w, r)
			if ok {
				r = r.WithContext(ContextWithSession(r.Context(), sess))
			}

			if ok || IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("unauthenticated request redirected to login",
				slog.String("path", r.URL.Path),
			)
			http.Redirect(w, r, LoginRedirectURL(r), http.StatusFound)
		})
	}
}
