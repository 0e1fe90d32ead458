package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// フォームの状態。クライアントのフォーム表示と一致させている。
const (
	authStatusIdle        = "idle"
	authStatusSuccess     = "success"
	authStatusFailed      = "failed"
	authStatusInvalidData = "invalid_data"
	authStatusUserExists  = "user_exists"
)

// AuthAPI は認証ハンドラーが必要とする外部APIのインターフェース。
type AuthAPI interface {
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUsersByEmail(ctx context.Context, email string) ([]model.User, error)
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
}

// SessionIssuer はセッションCookieの発行と削除を行う。
type SessionIssuer interface {
	Issue(w http.ResponseWriter, user model.User) (model.Session, error)
	Revoke(w http.ResponseWriter)
}

// AuthHandler はログイン・登録・セッションAPIのHTTPハンドラー。
type AuthHandler struct {
	api      AuthAPI
	sessions SessionIssuer
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(api AuthAPI, sessions SessionIssuer, collector metrics.MetricsCollector, logger *slog.Logger) *AuthHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &AuthHandler{
		api:      api,
		sessions: sessions,
		metrics:  collector,
		logger:   logger,
	}
}

type sessionResponse struct {
	User *model.User `json:"user"`
}

type signoutResponse struct {
	Success bool `json:"success"`
}

type authStateResponse struct {
	Status      string `json:"status"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

type loginForm struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	RedirectURL string `json:"redirectUrl"`
}

type registerForm struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	RedirectURL string `json:"redirectUrl"`
}

// GetSession は現在のセッションのユーザーを返す。常に200。
// GET /api/auth/session
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeJSON(w, sessionResponse{User: nil})
		return
	}
	writeJSON(w, sessionResponse{User: &sess.User})
}

// Signout はセッションCookieを削除する。常に200。
// POST /api/auth/signout
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Revoke(w)
	writeJSON(w, signoutResponse{Success: true})
}

// FormState はログイン・登録フォームの初期状態を返す。
// GET /login, GET /register
func (h *AuthHandler) FormState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, authStateResponse{Status: authStatusIdle})
}

// Login は外部の認証サービスで資格情報を確認し、セッションを発行する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	in, err := parseAuthForm(w, r)
	form := loginForm(in)
	if err != nil || validate.Struct(form) != nil {
		h.metrics.RecordLogin(authStatusInvalidData)
		middleware.WriteJSON(w, http.StatusBadRequest, authStateResponse{Status: authStatusInvalidData})
		return
	}

	user, err := h.api.AuthenticateUser(r.Context(), form.Email, form.Password)
	if err != nil || user == nil {
		if err != nil {
			h.logger.Info("authentication failed", slog.String("error", err.Error()))
		}
		h.metrics.RecordLogin(authStatusFailed)
		middleware.WriteJSON(w, http.StatusUnauthorized, authStateResponse{Status: authStatusFailed})
		return
	}

	if _, err := h.sessions.Issue(w, *user); err != nil {
		handleError(w, err)
		return
	}

	h.metrics.RecordLogin(authStatusSuccess)
	writeJSON(w, authStateResponse{
		Status:      authStatusSuccess,
		RedirectURL: safeRedirectURL(form.RedirectURL),
	})
}

// Register はユーザーを作成し、セッションを発行する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in, err := parseAuthForm(w, r)
	form := registerForm(in)
	if err != nil || validate.Struct(form) != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, authStateResponse{Status: authStatusInvalidData})
		return
	}

	existing, err := h.api.GetUsersByEmail(r.Context(), form.Email)
	if err != nil {
		h.registrationFailed(w, err)
		return
	}
	if len(existing) > 0 {
		middleware.WriteJSON(w, http.StatusConflict, authStateResponse{Status: authStatusUserExists})
		return
	}

	user, err := h.api.CreateUser(r.Context(), form.Email, form.Password)
	if err != nil || user == nil {
		h.registrationFailed(w, err)
		return
	}

	if _, err := h.sessions.Issue(w, *user); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, authStateResponse{
		Status:      authStatusSuccess,
		RedirectURL: safeRedirectURL(form.RedirectURL),
	})
}

func (h *AuthHandler) registrationFailed(w http.ResponseWriter, err error) {
	if err != nil {
		h.logger.Warn("registration failed", slog.String("error", err.Error()))
	}
	middleware.WriteJSON(w, http.StatusBadGateway, authStateResponse{Status: authStatusFailed})
}

// authInput はフォームまたはJSONで送られた認証情報。
type authInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURL string `json:"redirectUrl"`
}

// parseAuthForm はフォームまたはJSONから認証情報を読み取る。
// redirectUrlはボディに無ければクエリから読む。
func parseAuthForm(w http.ResponseWriter, r *http.Request) (authInput, error) {
	var in authInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(r, &in); err != nil {
			return authInput{}, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		if err := r.ParseForm(); err != nil {
			return authInput{}, err
		}
		in.Email = r.PostForm.Get("email")
		in.Password = r.PostForm.Get("password")
		in.RedirectURL = r.PostForm.Get("redirectUrl")
	}

	in.Email = strings.TrimSpace(in.Email)
	if in.RedirectURL == "" {
		in.RedirectURL = r.URL.Query().Get("redirectUrl")
	}
	return in, nil
}

// safeRedirectURL はアプリ内のパスだけを遷移先として許可する。
// 外部URLやプロトコル相対URLは"/"にする。
func safeRedirectURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return "/"
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
