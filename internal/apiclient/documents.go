package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
)

// GetDocuments はドキュメントの全バージョンを取得する。
// 存在しない場合は空スライスを返す。
func (c *Client) GetDocuments(ctx context.Context, id string) ([]model.Document, error) {
	return getList[model.Document](ctx, c, request{
		method: http.MethodGet,
		path:   pathOf("documents", id),
		label:  "GET /documents/:id",
	})
}

// SaveDocument はドキュメントの新しいバージョンを保存する。
func (c *Client) SaveDocument(ctx context.Context, doc model.Document) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodPost,
		path:   "/documents",
		label:  "POST /documents",
		body: struct {
			ID      string             `json:"id"`
			Title   string             `json:"title"`
			Content string             `json:"content"`
			Kind    model.DocumentKind `json:"kind"`
			UserID  string             `json:"userId"`
		}{doc.ID, doc.Title, doc.Content, doc.Kind, doc.UserID},
	})
}

// DeleteDocumentsAfter は指定時刻より後に作られたバージョンを削除する。
func (c *Client) DeleteDocumentsAfter(ctx context.Context, id string, timestamp time.Time) (json.RawMessage, error) {
	return c.callRaw(ctx, request{
		method: http.MethodDelete,
		path:   pathOf("documents", id),
		label:  "DELETE /documents/:id",
		query:  url.Values{"timestamp": {timestamp.UTC().Format(time.RFC3339Nano)}},
	})
}

// GetSuggestions はドキュメントに対する提案一覧を取得する。
func (c *Client) GetSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	return getList[model.Suggestion](ctx, c, request{
		method: http.MethodGet,
		path:   pathOf("documents", documentID, "suggestions"),
		label:  "GET /documents/:id/suggestions",
	})
}
