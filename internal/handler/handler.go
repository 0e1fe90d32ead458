// Package handler はHTTPハンドラーとルーティングを提供する。
// 各ハンドラーは 入力検証 → セッション確認 → 取得 → 所有者確認 → 外部APIへの委譲
// の順に処理し、失敗は統一エラーフォーマットで返す。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 1 << 20

// handleError はエラーをHTTPレスポンスに変換する。
// ChatErrorはそのステータスで、それ以外は内部エラーとして500を返す。
func handleError(w http.ResponseWriter, err error) {
	var chatErr *model.ChatError
	if errors.As(err, &chatErr) {
		middleware.WriteChatError(w, chatErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// writeJSON は200でJSONを返す。
func writeJSON(w http.ResponseWriter, v any) {
	middleware.WriteJSON(w, http.StatusOK, v)
}

// writeRawJSON は外部APIのレスポンスをそのまま200で返す。
func writeRawJSON(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// decodeJSON はリクエストボディをJSONとしてデコードする。
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxJSONBodyBytes)
	return json.NewDecoder(body).Decode(v)
}

// requireSession はコンテキストのセッションを返す。
// 無い場合はunauthorized:<surface>を返す。
func requireSession(r *http.Request, surface model.Surface) (model.Session, error) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return model.Session{}, model.Unauthorized(surface)
	}
	return sess, nil
}
