package session

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-32bytes-long!"

var testUser = model.User{
	ID:        "user-1",
	Email:     "alice@example.com",
	CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
}

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec(secret)
	require.NoError(t, err)
	return c
}

// issueCookie はセッションを発行し、レスポンスに設定されたCookieを返す。
func issueCookie(t *testing.T, store *Store) (*http.Cookie, model.Session) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess, err := store.Issue(rec, testUser)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], sess
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t, testSecret)
	in := model.Session{User: testUser, Expires: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	value, err := c.Encode(in)
	require.NoError(t, err)
	assert.NotContains(t, value, "alice@example.com", "payload must not be readable")

	out, err := c.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, in.User.ID, out.User.ID)
	assert.Equal(t, in.User.Email, out.User.Email)
	assert.True(t, in.Expires.Equal(out.Expires))
}

func TestCodec_EncodeUsesFreshNonce(t *testing.T) {
	c := newTestCodec(t, testSecret)
	in := model.Session{User: testUser, Expires: time.Now().Add(time.Hour)}

	a, err := c.Encode(in)
	require.NoError(t, err)
	b, err := c.Encode(in)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCodec_Decode_Rejects(t *testing.T) {
	c := newTestCodec(t, testSecret)
	valid, err := c.Encode(model.Session{User: testUser, Expires: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	// 暗号文の1バイトを反転して認証タグの検証を失敗させる
	raw, err := base64.RawURLEncoding.DecodeString(valid)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	other := newTestCodec(t, "another-secret-that-is-32-bytes-long")
	foreign, err := other.Encode(model.Session{User: testUser, Expires: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	tests := map[string]string{
		"not base64":     "%%%not-base64%%%",
		"too short":      "AAAA",
		"tampered":       tampered,
		"foreign secret": foreign,
		"plain json":     `{"user":{"id":"x"}}`,
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(value)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec("")
	assert.Error(t, err)
}

func TestStore_Issue_SetsCookieAttributes(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore(newTestCodec(t, testSecret), Options{Secure: true}, WithClock(func() time.Time { return now }))

	cookie, sess := issueCookie(t, store)

	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.True(t, sess.Expires.Equal(now.Add(30*24*time.Hour)))
	assert.True(t, cookie.Expires.Equal(sess.Expires))
	assert.Equal(t, testUser.ID, sess.User.ID)
}

func TestStore_Read_ValidSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore(newTestCodec(t, testSecret), Options{}, WithClock(func() time.Time { return now }))
	cookie, _ := issueCookie(t, store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	sess, ok := store.Read(rec, req)
	require.True(t, ok)
	assert.Equal(t, testUser.Email, sess.User.Email)
	assert.Empty(t, rec.Result().Cookies(), "valid session must not touch the cookie")
}

func TestStore_Read_NoCookie(t *testing.T) {
	store := NewStore(newTestCodec(t, testSecret), Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := store.Read(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestStore_Read_MalformedCookie(t *testing.T) {
	store := NewStore(newTestCodec(t, testSecret), Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	_, ok := store.Read(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestStore_Read_ExpiredSessionClearsCookie(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := issuedAt
	store := NewStore(newTestCodec(t, testSecret), Options{}, WithClock(func() time.Time { return current }))
	cookie, _ := issueCookie(t, store)

	current = issuedAt.Add(Lifetime + time.Second)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()

	_, ok := store.Read(rec, req)
	assert.False(t, ok)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, CookieName, cleared[0].Name)
	assert.Empty(t, cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestStore_Read_AtExpiryInstantIsValid(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := issuedAt
	store := NewStore(newTestCodec(t, testSecret), Options{}, WithClock(func() time.Time { return current }))
	cookie, _ := issueCookie(t, store)

	current = issuedAt.Add(Lifetime)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	_, ok := store.Read(httptest.NewRecorder(), req)
	assert.True(t, ok)
}

func TestStore_Revoke_Idempotent(t *testing.T) {
	store := NewStore(newTestCodec(t, testSecret), Options{Domain: "example.com"})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		store.Revoke(rec)

		header := rec.Header().Get("Set-Cookie")
		assert.True(t, strings.HasPrefix(header, CookieName+"="), "Set-Cookie = %q", header)
		assert.Contains(t, header, "Max-Age=0")
	}
}
