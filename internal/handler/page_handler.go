package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

// PageAPI はページデータハンドラーが必要とする外部APIのインターフェース。
type PageAPI interface {
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)
}

// PageHandler はチャット画面の初期データを返すハンドラー。
type PageHandler struct {
	api PageAPI
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(api PageAPI) *PageHandler {
	return &PageHandler{api: api}
}

type pageResponse struct {
	ID         string           `json:"id"`
	Messages   []pageMessage    `json:"messages"`
	IsReadonly bool             `json:"isReadonly"`
	User       model.User       `json:"user"`
	Visibility model.Visibility `json:"visibility,omitempty"`
}

// pageMessage はクライアントのメッセージ表示形式。
type pageMessage struct {
	ID          string              `json:"id"`
	Parts       []model.MessagePart `json:"parts"`
	Role        string              `json:"role"`
	Content     string              `json:"content"`
	CreatedAt   time.Time           `json:"createdAt"`
	Attachments []model.Attachment  `json:"experimental_attachments"`
}

// NewChat は新規チャット画面のデータを返す。
// GET /
func (h *PageHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	sess, err := requireSession(r, model.SurfaceChat)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, pageResponse{
		ID:         uuid.NewString(),
		Messages:   []pageMessage{},
		IsReadonly: false,
		User:       sess.User,
	})
}

// ShowChat は既存チャット画面のデータを返す。
// 非公開チャットを所有者以外が開いた場合は存在しないものとして扱う。
// GET /chat/{id}
func (h *PageHandler) ShowChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := requireSession(r, model.SurfaceChat)
	if err != nil {
		handleError(w, err)
		return
	}

	chat, err := h.api.GetChat(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if chat == nil || !policy.CanReadChat(sess, chat) {
		handleError(w, model.NotFound(model.SurfaceChat))
		return
	}

	messages, err := h.api.GetMessages(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, pageResponse{
		ID:         chat.ID,
		Messages:   toPageMessages(messages),
		IsReadonly: !policy.OwnsResource(sess, chat.UserID),
		User:       sess.User,
		Visibility: chat.Visibility,
	})
}

func toPageMessages(messages []model.Message) []pageMessage {
	out := make([]pageMessage, len(messages))
	for i, m := range messages {
		attachments := m.Attachments
		if attachments == nil {
			attachments = []model.Attachment{}
		}
		out[i] = pageMessage{
			ID:          m.ID,
			Parts:       m.Parts,
			Role:        m.Role,
			Content:     "",
			CreatedAt:   m.CreatedAt,
			Attachments: attachments,
		}
	}
	return out
}
