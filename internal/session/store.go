package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
)

const (
	// CookieName はセッションCookieの名前。
	CookieName = "auth-session"
	// Lifetime はセッションの有効期間。
	Lifetime = 30 * 24 * time.Hour
)

// Options はセッションCookieの属性設定。
type Options struct {
	Secure bool
	Domain string
}

// Store はリクエスト/レスポンス上のセッションCookieを扱う。
type Store struct {
	codec  *Codec
	opts   Options
	now    func() time.Time
	logger *slog.Logger
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger はStoreが使うロガーを差し替える。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore はStoreを生成する。
func NewStore(codec *Codec, opts Options, options ...Option) *Store {
	s := &Store{
		codec:  codec,
		opts:   opts,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Issue はユーザーに対して新しいセッションを発行し、Cookieを設定する。
// 有効期限は現在時刻から30日後。
func (s *Store) Issue(w http.ResponseWriter, user model.User) (model.Session, error) {
	sess := model.Session{
		User:    user,
		Expires: s.now().Add(Lifetime).UTC().Truncate(time.Second),
	}

	value, err := s.codec.Encode(sess)
	if err != nil {
		return model.Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		Expires:  sess.Expires,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// Read はリクエストのCookieからセッションを取り出す。
// Cookieが無い・解析できない場合は未認証として扱い、エラーは返さない。
// 期限切れの場合は未認証として扱い、古いCookieを削除する。
func (s *Store) Read(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return model.Session{}, false
	}

	sess, err := s.codec.Decode(cookie.Value)
	if err != nil {
		s.logger.Debug("session cookie rejected", slog.String("error", err.Error()))
		return model.Session{}, false
	}

	if sess.Expired(s.now()) {
		s.logger.Debug("session expired",
			slog.String("user_id", sess.User.ID),
			slog.Time("expires", sess.Expires),
		)
		if w != nil {
			s.Revoke(w)
		}
		return model.Session{}, false
	}

	return sess, true
}

// Revoke はセッションCookieを削除する。何度呼んでも結果は同じ。
func (s *Store) Revoke(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
