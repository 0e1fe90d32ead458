package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/chatgate/internal/model"
)

// ChatListParams はチャット一覧のページング条件。
type ChatListParams struct {
	Limit         int
	StartingAfter string
	EndingBefore  string
}

func (p ChatListParams) values() url.Values {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.StartingAfter != "" {
		q.Set("starting_after", p.StartingAfter)
	}
	if p.EndingBefore != "" {
		q.Set("ending_before", p.EndingBefore)
	}
	return q
}

// GetChat はチャットを取得する。存在しない場合は(nil, nil)を返す。
func (c *Client) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	found, err := c.getOptional(ctx, request{
		method: http.MethodGet,
		path:   pathOf("chats", id),
		label:  "GET /chats/:id",
	}, &chat)
	if err != nil || !found {
		return nil, err
	}
	return &chat, nil
}

// GetChatsByUser はユーザーのチャット一覧を取得する。
// ページングの形式は外部APIが決めるため、レスポンスはそのまま返す。
func (c *Client) GetChatsByUser(ctx context.Context, userID string, params ChatListParams) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodGet,
		path:   pathOf("users", userID, "chats"),
		label:  "GET /users/:id/chats",
		query:  params.values(),
	})
}

// saveChatRequest はチャット作成のリクエストボディ。
type saveChatRequest struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	Title      string           `json:"title"`
	Visibility model.Visibility `json:"visibility"`
}

// SaveChat はチャットを作成する。
func (c *Client) SaveChat(ctx context.Context, chat model.Chat) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/chats",
		label:  "POST /chats",
		body: saveChatRequest{
			ID:         chat.ID,
			UserID:     chat.UserID,
			Title:      chat.Title,
			Visibility: chat.Visibility,
		},
	}, nil)
}

// DeleteChat はチャットを削除し、外部APIのレスポンスをそのまま返す。
func (c *Client) DeleteChat(ctx context.Context, id string) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodDelete,
		path:   pathOf("chats", id),
		label:  "DELETE /chats/:id",
	})
}

// UpdateChatVisibility はチャットの公開範囲を変更する。
func (c *Client) UpdateChatVisibility(ctx context.Context, id string, visibility model.Visibility) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodPatch,
		path:   pathOf("chats", id),
		label:  "PATCH /chats/:id",
		body:   map[string]model.Visibility{"visibility": visibility},
	})
}

// GetVotes はチャット内の評価一覧を取得する。
func (c *Client) GetVotes(ctx context.Context, chatID string) ([]model.Vote, error) {
	return getList[model.Vote](ctx, c, request{
		method: http.MethodGet,
		path:   pathOf("chats", chatID, "votes"),
		label:  "GET /chats/:id/votes",
	})
}

// VoteRequest はメッセージ評価のリクエスト。Typeは"up"または"down"。
type VoteRequest struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Type      string `json:"type"`
}

// VoteMessage はメッセージを評価する。
func (c *Client) VoteMessage(ctx context.Context, vote VoteRequest) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodPost,
		path:   "/votes",
		label:  "POST /votes",
		body:   vote,
	})
}

// CreateStream はチャットにストリームIDを登録する。
func (c *Client) CreateStream(ctx context.Context, chatID string) error {
	return c.call(ctx, request{
		method: http.MethodPost,
		path:   "/streams",
		label:  "POST /streams",
		body:   map[string]string{"chatId": chatID},
	}, nil)
}

// GetStreams はチャットに登録されたストリームを取得する。
func (c *Client) GetStreams(ctx context.Context, chatID string) ([]model.Stream, error) {
	return getList[model.Stream](ctx, c, request{
		method: http.MethodGet,
		path:   pathOf("chats", chatID, "streams"),
		label:  "GET /chats/:id/streams",
	})
}
