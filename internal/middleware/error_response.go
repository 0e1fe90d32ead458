package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chatgate/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// internalErrorBody は想定外のエラー時に返す固定レスポンス。
var internalErrorBody = ErrorResponseBody{
	Code:    "internal_error",
	Message: "Something went wrong. Please try again later.",
}

// WriteJSON はJSONレスポンスを書き込む。
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteChatError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ログ専用のエラー（database）はコードと原因を伏せ、詳細はログにのみ残す。
func WriteChatError(w http.ResponseWriter, chatErr *model.ChatError) {
	if chatErr.LogOnly() {
		slog.Error("request failed",
			slog.String("code", chatErr.Code()),
			slog.String("cause", chatErr.Cause),
		)
		WriteJSON(w, chatErr.StatusCode(), ErrorResponseBody{
			Code:    "",
			Message: "Something went wrong. Please try again later.",
		})
		return
	}

	WriteJSON(w, chatErr.StatusCode(), ErrorResponseBody{
		Code:    chatErr.Code(),
		Message: chatErr.Message(),
		Cause:   chatErr.Cause,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, internalErrorBody)
}
