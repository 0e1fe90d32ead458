package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

// DocumentAPI はドキュメントハンドラーが必要とする外部APIのインターフェース。
type DocumentAPI interface {
	GetDocuments(ctx context.Context, id string) ([]model.Document, error)
	SaveDocument(ctx context.Context, doc model.Document) (json.RawMessage, error)
	DeleteDocumentsAfter(ctx context.Context, id string, timestamp time.Time) (json.RawMessage, error)
}

// DocumentHandler はドキュメントAPIのHTTPハンドラー。
type DocumentHandler struct {
	api DocumentAPI
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(api DocumentAPI) *DocumentHandler {
	return &DocumentHandler{api: api}
}

// GetDocument はドキュメントの全バージョンを返す。
// GET /api/document?id=xxx
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		handleError(w, model.BadRequest("Parameter id is missing"))
		return
	}

	sess, err := requireSession(r, model.SurfaceDocument)
	if err != nil {
		handleError(w, err)
		return
	}

	docs, err := h.api.GetDocuments(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if len(docs) == 0 {
		handleError(w, model.NotFound(model.SurfaceDocument))
		return
	}
	if !policy.OwnsResource(sess, docs[0].UserID) {
		handleError(w, model.Forbidden(model.SurfaceDocument))
		return
	}

	writeJSON(w, docs)
}

type saveDocumentRequest struct {
	Content string `json:"content"`
	Title   string `json:"title" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=text code image sheet"`
}

// SaveDocument はドキュメントの新しいバージョンを保存する。
// POST /api/document?id=xxx
func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		handleError(w, model.BadRequest("Parameter id is required."))
		return
	}

	var req saveDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, model.BadRequest("invalid request body"))
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, err)
		return
	}

	sess, err := requireSession(r, model.SurfaceDocument)
	if err != nil {
		handleError(w, err)
		return
	}

	existing, err := h.api.GetDocuments(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	// 新規作成は誰でも可能。既存ドキュメントへの追記は所有者のみ
	if len(existing) > 0 && !policy.OwnsResource(sess, existing[0].UserID) {
		handleError(w, model.Forbidden(model.SurfaceDocument))
		return
	}

	saved, err := h.api.SaveDocument(r.Context(), model.Document{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
		Kind:    model.DocumentKind(req.Kind),
		UserID:  sess.User.ID,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, saved)
}

// DeleteDocument は指定時刻より後のバージョンを削除する。
// DELETE /api/document?id=xxx&timestamp=2024-01-01T00:00:00Z
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		handleError(w, model.BadRequest("Parameter id is required."))
		return
	}
	rawTimestamp := q.Get("timestamp")
	if rawTimestamp == "" {
		handleError(w, model.BadRequest("Parameter timestamp is required."))
		return
	}
	timestamp, err := time.Parse(time.RFC3339Nano, rawTimestamp)
	if err != nil {
		handleError(w, model.BadRequest("Parameter timestamp must be an RFC3339 timestamp."))
		return
	}

	sess, err := requireSession(r, model.SurfaceDocument)
	if err != nil {
		handleError(w, err)
		return
	}

	docs, err := h.api.GetDocuments(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	var owner string
	if len(docs) > 0 {
		owner = docs[0].UserID
	}
	if !policy.OwnsResource(sess, owner) {
		handleError(w, model.Forbidden(model.SurfaceDocument))
		return
	}

	deleted, err := h.api.DeleteDocumentsAfter(r.Context(), id, timestamp)
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, deleted)
}
