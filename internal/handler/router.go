package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// ExternalAPI は全ハンドラーが使う外部APIクライアントのインターフェース。
// apiclient.Clientが実装する。
type ExternalAPI interface {
	AuthAPI
	ChatAPI
	HistoryAPI
	DocumentAPI
	SuggestionAPI
	VoteAPI
	FileAPI
	PageAPI
}

// SessionStore はセッションCookieの読み取り・発行・削除を行う。
// session.Storeが実装する。
type SessionStore interface {
	middleware.SessionReader
	SessionIssuer
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	API      ExternalAPI
	Sessions SessionStore
	Metrics  metrics.MetricsCollector
	Logger   *slog.Logger

	// ミドルウェア設定
	RateLimiter        *middleware.RateLimiter // nilで無効
	CORSAllowedOrigin  string
	HSTS               bool
	MaxRequestDuration time.Duration
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS → Tracing → Timeout → RouteGate
//
// /api/* にはさらにRateLimitを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	if deps.CORSAllowedOrigin != "" {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	}
	r.Use(otelhttp.NewMiddleware("chatgate",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	if deps.MaxRequestDuration > 0 {
		r.Use(chimw.Timeout(deps.MaxRequestDuration))
	}
	r.Use(middleware.NewRouteGate(deps.Sessions, logger))

	authHandler := NewAuthHandler(deps.API, deps.Sessions, collector, logger)
	chatHandler := NewChatHandler(deps.API, collector, logger)
	historyHandler := NewHistoryHandler(deps.API)
	documentHandler := NewDocumentHandler(deps.API)
	suggestionHandler := NewSuggestionHandler(deps.API)
	voteHandler := NewVoteHandler(deps.API)
	fileHandler := NewFileHandler(deps.API)
	pageHandler := NewPageHandler(deps.API)

	// --- ページ ---
	r.Get("/", pageHandler.NewChat)
	r.Get("/chat/{id}", pageHandler.ShowChat)

	// --- ログイン・登録（ゲート対象外） ---
	r.Get("/login", authHandler.FormState)
	r.Post("/login", authHandler.Login)
	r.Get("/register", authHandler.FormState)
	r.Post("/register", authHandler.Register)

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		// セッションAPIはエラーを返さない契約のためレート制限の外に置く
		r.Get("/auth/session", authHandler.GetSession)
		r.Post("/auth/signout", authHandler.Signout)

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}

			r.Route("/chat", func(r chi.Router) {
				r.Post("/", chatHandler.PostChat)
				r.Get("/", chatHandler.GetChat)
				r.Delete("/", chatHandler.DeleteChat)
				r.Delete("/messages", chatHandler.DeleteTrailingMessages)
			})

			r.Get("/history", historyHandler.ListHistory)
			r.Patch("/history", historyHandler.UpdateVisibility)

			r.Route("/document", func(r chi.Router) {
				r.Get("/", documentHandler.GetDocument)
				r.Post("/", documentHandler.SaveDocument)
				r.Delete("/", documentHandler.DeleteDocument)
			})

			r.Get("/suggestions", suggestionHandler.ListSuggestions)

			r.Get("/vote", voteHandler.ListVotes)
			r.Patch("/vote", voteHandler.VoteMessage)

			r.Post("/files/upload", fileHandler.Upload)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, model.NotFound(model.SurfaceAPI))
	})

	return r
}
