// Package session はCookieに保持する認証セッションの発行・読み取り・破棄を提供する。
// サーバー側にセッションテーブルは持たない。
package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hitoshi/chatgate/internal/model"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// keyInfo はHKDFの鍵導出に使うコンテキスト文字列。
const keyInfo = "auth-session"

// ErrInvalidToken はCookie値が復号・解析できない場合のエラー。
var ErrInvalidToken = errors.New("invalid session token")

// Codec はSessionとCookie値の相互変換を行う。
// ペイロードはXChaCha20-Poly1305で暗号化され、改ざんは復号失敗として検出される。
type Codec struct {
	aead cipher.AEAD
}

// NewCodec はシークレットからHKDF-SHA256で鍵を導出し、Codecを生成する。
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cipher: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode はSessionを暗号化し、Cookieに格納できる文字列を返す。
// 形式は base64url(nonce || ciphertext)。
func (c *Codec) Encode(s model.Session) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode はCookie値を復号してSessionを返す。
// 形式不正・改ざん・JSON不正はすべてErrInvalidTokenとして扱う。
// 有効期限の判定は行わない（Storeの責務）。
func (c *Codec) Decode(value string) (model.Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return model.Session{}, fmt.Errorf("%w: token too short", ErrInvalidToken)
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var s model.Session
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if s.User.ID == "" || s.Expires.IsZero() {
		return model.Session{}, fmt.Errorf("%w: missing fields", ErrInvalidToken)
	}
	return s, nil
}
