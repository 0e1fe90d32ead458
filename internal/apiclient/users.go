package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/chatgate/internal/model"
)

// credentials はログイン・ユーザー作成のリクエストボディ。
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は認証系エンドポイントのレスポンス。
type authResponse struct {
	User *model.User `json:"user"`
}

// AuthenticateUser はメールアドレスとパスワードで認証する。
// 認証に成功した場合はユーザーを返し、レスポンスにユーザーが含まれない場合はnilを返す。
func (c *Client) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	var resp authResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		label:  "POST /auth/login",
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

// GetUsersByEmail はメールアドレスに一致するユーザーを返す。
func (c *Client) GetUsersByEmail(ctx context.Context, email string) ([]model.User, error) {
	return getList[model.User](ctx, c, request{
		method: http.MethodGet,
		path:   "/users",
		label:  "GET /users",
		query:  url.Values{"email": {email}},
	})
}

// CreateUser はユーザーを作成する。
// パスワードのハッシュ化は外部APIの責務。
func (c *Client) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	var resp authResponse
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/users",
		label:  "POST /users",
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}
