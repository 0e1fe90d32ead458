package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/policy"
)

// SuggestionAPI は提案ハンドラーが必要とする外部APIのインターフェース。
type SuggestionAPI interface {
	GetSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error)
}

// SuggestionHandler は提案APIのHTTPハンドラー。
type SuggestionHandler struct {
	api SuggestionAPI
}

// NewSuggestionHandler はSuggestionHandlerを生成する。
func NewSuggestionHandler(api SuggestionAPI) *SuggestionHandler {
	return &SuggestionHandler{api: api}
}

// ListSuggestions はドキュメントへの提案一覧を返す。
// GET /api/suggestions?documentId=xxx
func (h *SuggestionHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	documentID := r.URL.Query().Get("documentId")
	if documentID == "" {
		handleError(w, model.BadRequest("Parameter documentId is required."))
		return
	}

	sess, err := requireSession(r, model.SurfaceSuggestions)
	if err != nil {
		handleError(w, err)
		return
	}

	suggestions, err := h.api.GetSuggestions(r.Context(), documentID)
	if err != nil {
		handleError(w, err)
		return
	}
	if len(suggestions) == 0 {
		writeJSON(w, []model.Suggestion{})
		return
	}
	if !policy.OwnsResource(sess, suggestions[0].UserID) {
		handleError(w, model.Forbidden(model.SurfaceSuggestions))
		return
	}

	writeJSON(w, suggestions)
}
