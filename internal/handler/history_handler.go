package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/chatgate/internal/apiclient"
	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

// defaultHistoryLimit は履歴取得の既定件数。
const defaultHistoryLimit = 10

// HistoryAPI は履歴ハンドラーが必要とする外部APIのインターフェース。
type HistoryAPI interface {
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	GetChatsByUser(ctx context.Context, userID string, params apiclient.ChatListParams) (json.RawMessage, error)
	UpdateChatVisibility(ctx context.Context, id string, visibility model.Visibility) (json.RawMessage, error)
}

// HistoryHandler はチャット履歴APIのHTTPハンドラー。
type HistoryHandler struct {
	api HistoryAPI
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(api HistoryAPI) *HistoryHandler {
	return &HistoryHandler{api: api}
}

// ListHistory はログインユーザーのチャット一覧を返す。
// GET /api/history?limit=10&starting_after=xxx
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := apiclient.ChatListParams{
		Limit:         parseLimit(q.Get("limit")),
		StartingAfter: q.Get("starting_after"),
		EndingBefore:  q.Get("ending_before"),
	}
	if params.StartingAfter != "" && params.EndingBefore != "" {
		handleError(w, model.BadRequest("Only one of starting_after or ending_before can be provided."))
		return
	}

	sess, err := requireSession(r, model.SurfaceChat)
	if err != nil {
		handleError(w, err)
		return
	}

	chats, err := h.api.GetChatsByUser(r.Context(), sess.User.ID, params)
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, chats)
}

type visibilityRequest struct {
	ChatID     string `json:"chatId" validate:"required"`
	Visibility string `json:"visibility" validate:"required,oneof=public private"`
}

// UpdateVisibility はチャットの公開範囲を変更する。
// PATCH /api/history
func (h *HistoryHandler) UpdateVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
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

	chat, err := h.api.GetChat(r.Context(), req.ChatID)
	if err != nil {
		handleError(w, err)
		return
	}
	if chat == nil {
		handleError(w, model.NotFound(model.SurfaceChat))
		return
	}
	// 公開チャットでも変更できるのは所有者のみ
	if !policy.OwnsResource(sess, chat.UserID) {
		handleError(w, model.Forbidden(model.SurfaceChat))
		return
	}

	updated, err := h.api.UpdateChatVisibility(r.Context(), req.ChatID, model.Visibility(req.Visibility))
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, updated)
}

// parseLimit はlimitパラメータを解釈する。不正値や0以下は既定値にする。
func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return n
}
