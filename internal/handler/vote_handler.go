package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/chatgate/internal/apiclient"
	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

// VoteAPI は評価ハンドラーが必要とする外部APIのインターフェース。
type VoteAPI interface {
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	GetVotes(ctx context.Context, chatID string) ([]model.Vote, error)
	VoteMessage(ctx context.Context, vote apiclient.VoteRequest) (json.RawMessage, error)
}

// VoteHandler はメッセージ評価APIのHTTPハンドラー。
type VoteHandler struct {
	api VoteAPI
}

// NewVoteHandler はVoteHandlerを生成する。
func NewVoteHandler(api VoteAPI) *VoteHandler {
	return &VoteHandler{api: api}
}

// ListVotes はチャット内の評価一覧を返す。
// GET /api/vote?chatId=xxx
func (h *VoteHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")
	if chatID == "" {
		handleError(w, model.BadRequest("Parameter chatId is required."))
		return
	}

	sess, err := requireSession(r, model.SurfaceVote)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.authorizeChat(r.Context(), sess, chatID); err != nil {
		handleError(w, err)
		return
	}

	votes, err := h.api.GetVotes(r.Context(), chatID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, votes)
}

type voteRequest struct {
	ChatID    string `json:"chatId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=up down"`
}

// VoteMessage はメッセージを評価する。
// PATCH /api/vote
func (h *VoteHandler) VoteMessage(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, model.BadRequest("invalid request body"))
		return
	}
	if err := validateRequest(req); err != nil {
		handleError(w, err)
		return
	}

	sess, err := requireSession(r, model.SurfaceVote)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.authorizeChat(r.Context(), sess, req.ChatID); err != nil {
		handleError(w, err)
		return
	}

	voted, err := h.api.VoteMessage(r.Context(), apiclient.VoteRequest{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		Type:      req.Type,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	writeRawJSON(w, voted)
}

// authorizeChat はチャットの存在と所有者を確認する。
func (h *VoteHandler) authorizeChat(ctx context.Context, sess model.Session, chatID string) error {
	chat, err := h.api.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return model.NotFound(model.SurfaceChat)
	}
	if !policy.OwnsResource(sess, chat.UserID) {
		return model.Forbidden(model.SurfaceVote)
	}
	return nil
}
