package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

const (
	// messageCountWindowHours はエンタイトルメント判定に使う集計期間（時間）。
	messageCountWindowHours = 24
	// maxTitleLength はチャットタイトルの最大文字数。
	maxTitleLength = 80
	// defaultChatTitle はテキストが無い場合のタイトル。
	defaultChatTitle = "New Chat"
)

// ChatAPI はチャットハンドラーが必要とする外部APIのインターフェース。
type ChatAPI interface {
	GetMessageCount(ctx context.Context, userID string, hours int) (int, error)
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	SaveChat(ctx context.Context, chat model.Chat) error
	DeleteChat(ctx context.Context, id string) (json.RawMessage, error)
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)
	SaveMessages(ctx context.Context, messages []model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	DeleteMessagesAfter(ctx context.Context, chatID string, timestamp time.Time) error
	CreateStream(ctx context.Context, chatID string) error
}

// ChatHandler はチャットAPIのHTTPハンドラー。
type ChatHandler struct {
	api     ChatAPI
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(api ChatAPI, collector metrics.MetricsCollector, logger *slog.Logger) *ChatHandler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &ChatHandler{
		api:     api,
		metrics: collector,
		logger:  logger,
		now:     time.Now,
	}
}

// chatRequest はPOST /api/chatのリクエストボディ。
type chatRequest struct {
	ID                     string             `json:"id" validate:"required,uuid"`
	Message                chatMessageRequest `json:"message" validate:"required"`
	SelectedChatModel      string             `json:"selectedChatModel" validate:"required,oneof=chat-model chat-model-reasoning"`
	SelectedVisibilityType string             `json:"selectedVisibilityType" validate:"required,oneof=public private"`
}

type chatMessageRequest struct {
	ID          string              `json:"id" validate:"required,uuid"`
	CreatedAt   time.Time           `json:"createdAt"`
	Role        string              `json:"role" validate:"required,eq=user"`
	Content     string              `json:"content" validate:"required,min=1,max=2000"`
	Parts       []textPartRequest   `json:"parts" validate:"required,min=1,dive"`
	Attachments []attachmentRequest `json:"experimental_attachments" validate:"omitempty,dive"`
}

type textPartRequest struct {
	Type string `json:"type" validate:"required,eq=text"`
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

type attachmentRequest struct {
	URL         string `json:"url" validate:"required,url"`
	Name        string `json:"name" validate:"required,min=1,max=2000"`
	ContentType string `json:"contentType" validate:"required,oneof=image/png image/jpg image/jpeg"`
}

type deleteMessagesResponse struct {
	Success bool `json:"success"`
}

// completionDisabledResponse は補完エンジン無効時のレスポンス。
type completionDisabledResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PostChat はユーザーメッセージを受け付ける。
// POST /api/chat
//
// チャットが無ければ作成し、メッセージを保存してストリームIDを登録する。
// 補完エンジンは外部サーバー側の実装待ちのため、最後に501を返す。
func (h *ChatHandler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, model.BadRequest("invalid request body"))
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, err)
		return
	}

	sess, err := requireSession(r, model.SurfaceChat)
	if err != nil {
		handleError(w, err)
		return
	}
	ctx := r.Context()

	count, err := h.api.GetMessageCount(ctx, sess.User.ID, messageCountWindowHours)
	if err != nil {
		handleError(w, err)
		return
	}
	// 今回のメッセージを含めた件数で判定する
	if !policy.WithinEntitlement(count+1, model.UserTypeStandard) {
		h.metrics.RecordEntitlementRejection()
		h.logger.Info("daily message entitlement exceeded",
			slog.String("user_id", sess.User.ID),
			slog.Int("message_count", count),
		)
		handleError(w, model.RateLimited(model.SurfaceChat))
		return
	}

	chat, err := h.api.GetChat(ctx, req.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	if chat == nil {
		err := h.api.SaveChat(ctx, model.Chat{
			ID:         req.ID,
			UserID:     sess.User.ID,
			Title:      titleFromMessage(req.Message),
			Visibility: model.VisibilityPrivate,
		})
		if err != nil {
			handleError(w, err)
			return
		}
	} else if !policy.OwnsResource(sess, chat.UserID) {
		handleError(w, model.Forbidden(model.SurfaceChat))
		return
	}

	// 補完エンジンに渡す履歴。エンジン接続までは読み込みのみ行う
	if _, err := h.api.GetMessages(ctx, req.ID); err != nil {
		handleError(w, err)
		return
	}

	if err := h.api.SaveMessages(ctx, []model.Message{toUserMessage(req, h.now())}); err != nil {
		handleError(w, err)
		return
	}

	if err := h.api.CreateStream(ctx, req.ID); err != nil {
		handleError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusNotImplemented, completionDisabledResponse{
		Error:   "AI functionality disabled. External server integration required.",
		Message: "Please implement chat completions in your external API server.",
	})
}

// GetChat は再開可能ストリームの取得エンドポイント。現在は常に204を返す。
// GET /api/chat
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// DeleteChat はチャットを削除する。
// DELETE /api/chat?id=xxx
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		handleError(w, model.BadRequest("Parameter id is required."))
		return
	}

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

	// 存在しないチャットも所有者確認で拒否される
	if !policy.OwnsResource(sess, ownerOf(chat)) {
		handleError(w, model.Forbidden(model.SurfaceChat))
		return
	}

	deleted, err := h.api.DeleteChat(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, deleted)
}

// DeleteTrailingMessages は指定メッセージとそれ以降のメッセージを削除する。
// メッセージを編集して会話をやり直すときに使う。
// DELETE /api/chat/messages?id=xxx
func (h *ChatHandler) DeleteTrailingMessages(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		handleError(w, model.BadRequest("Parameter id is required."))
		return
	}

	sess, err := requireSession(r, model.SurfaceChat)
	if err != nil {
		handleError(w, err)
		return
	}
	ctx := r.Context()

	msg, err := h.api.GetMessage(ctx, id)
	if err != nil {
		handleError(w, err)
		return
	}
	if msg == nil {
		handleError(w, model.NotFound(model.SurfaceChat))
		return
	}

	chat, err := h.api.GetChat(ctx, msg.ChatID)
	if err != nil {
		handleError(w, err)
		return
	}
	if !policy.OwnsResource(sess, ownerOf(chat)) {
		handleError(w, model.Forbidden(model.SurfaceChat))
		return
	}

	if err := h.api.DeleteMessagesAfter(ctx, msg.ChatID, msg.CreatedAt); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, deleteMessagesResponse{Success: true})
}

// titleFromMessage は最初のテキストパートからタイトルを作る。
// 本文は加工せず先頭80文字に切り詰め、空なら"New Chat"にする。
func titleFromMessage(msg chatMessageRequest) string {
	var text string
	for _, p := range msg.Parts {
		if p.Type == "text" {
			text = p.Text
			break
		}
	}

	if utf8.RuneCountInString(text) > maxTitleLength {
		text = string([]rune(text)[:maxTitleLength])
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultChatTitle
	}
	return text
}

func toUserMessage(req chatRequest, now time.Time) model.Message {
	parts := make([]model.MessagePart, len(req.Message.Parts))
	for i, p := range req.Message.Parts {
		parts[i] = model.MessagePart{Type: p.Type, Text: p.Text}
	}
	attachments := make([]model.Attachment, len(req.Message.Attachments))
	for i, a := range req.Message.Attachments {
		attachments[i] = model.Attachment{URL: a.URL, Name: a.Name, ContentType: a.ContentType}
	}
	return model.Message{
		ID:          req.Message.ID,
		ChatID:      req.ID,
		Role:        "user",
		Parts:       parts,
		Attachments: attachments,
		CreatedAt:   now.UTC(),
	}
}

// ownerOf はチャットの所有者IDを返す。チャットが無ければ空文字列。
func ownerOf(chat *model.Chat) string {
	if chat == nil {
		return ""
	}
	return chat.UserID
}
