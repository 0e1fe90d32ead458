package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
)

// GetMessages はチャットのメッセージ一覧を取得する。
func (c *Client) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	return getList[model.Message](ctx, c, request{
		method: http.MethodGet,
		path:   pathOf("chats", chatID, "messages"),
		label:  "GET /chats/:id/messages",
	})
}

// GetMessage はメッセージを取得する。存在しない場合は(nil, nil)を返す。
func (c *Client) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	found, err := c.getOptional(ctx, request{
		method: http.MethodGet,
		path:   pathOf("messages", id),
		label:  "GET /messages/:id",
	}, &msg)
	if err != nil || !found {
		return nil, err
	}
	return &msg, nil
}

// SaveMessages はメッセージをまとめて保存する。
func (c *Client) SaveMessages(ctx context.Context, messages []model.Message) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/messages",
		label:  "POST /messages",
		body:   map[string][]model.Message{"messages": messages},
	}, nil)
}

// DeleteMessagesAfter は指定時刻以降のメッセージを削除する。
func (c *Client) DeleteMessagesAfter(ctx context.Context, chatID string, timestamp time.Time) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   pathOf("chats", chatID, "messages"),
		label:  "DELETE /chats/:id/messages",
		body:   map[string]string{"timestamp": timestamp.UTC().Format(time.RFC3339Nano)},
	}, nil)
}

// GetMessageCount は直近hours時間にユーザーが送信したメッセージ数を返す。
// countが含まれない場合は0として扱う。
func (c *Client) GetMessageCount(ctx context.Context, userID string, hours int) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   pathOf("users", userID, "message-count"),
		label:  "GET /users/:id/message-count",
		query:  url.Values{"hours": {strconv.Itoa(hours)}},
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}
