package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/chatgate/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// TestWriteChatError_WritesUnifiedFormat は統一フォーマットでエラーが書き込まれることを検証する。
func TestWriteChatError_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()
	WriteChatError(w, model.Forbidden(model.SurfaceChat))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	body := decodeErrorBody(t, w)
	if body["code"] != "forbidden:chat" {
		t.Errorf("code = %q, want %q", body["code"], "forbidden:chat")
	}
	if body["message"] != "This chat belongs to another user. Please check the chat ID and try again." {
		t.Errorf("message = %q", body["message"])
	}
	if _, ok := body["cause"]; ok {
		t.Error("cause should be omitted when empty")
	}
}

// TestWriteChatError_IncludesCause は原因がレスポンスに含まれることを検証する。
func TestWriteChatError_IncludesCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteChatError(w, model.BadRequest("Parameter id is missing"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, w)
	if body["code"] != "bad_request:api" {
		t.Errorf("code = %q, want %q", body["code"], "bad_request:api")
	}
	if body["cause"] != "Parameter id is missing" {
		t.Errorf("cause = %q, want %q", body["cause"], "Parameter id is missing")
	}
}

// TestWriteChatError_DifferentStatusCodes はエラー種別ごとのステータスを検証する。
func TestWriteChatError_DifferentStatusCodes(t *testing.T) {
	tests := []struct {
		err  *model.ChatError
		want int
	}{
		{model.Unauthorized(model.SurfaceDocument), http.StatusUnauthorized},
		{model.NotFound(model.SurfaceChat), http.StatusNotFound},
		{model.RateLimited(model.SurfaceChat), http.StatusTooManyRequests},
		{model.NewChatError(model.ErrorTypeOffline, model.SurfaceChat), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code(), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteChatError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

// TestWriteChatError_DatabaseSurfaceHidesDetails はdatabaseのエラー詳細が伏せられることを検証する。
func TestWriteChatError_DatabaseSurfaceHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	WriteChatError(w, model.NewChatError(model.ErrorTypeBadRequest, model.SurfaceDatabase, "relation does not exist"))

	body := decodeErrorBody(t, w)
	if body["code"] != "" {
		t.Errorf("code = %q, want empty", body["code"])
	}
	if _, ok := body["cause"]; ok {
		t.Error("cause must not be exposed for database errors")
	}
	if body["message"] != "Something went wrong. Please try again later." {
		t.Errorf("message = %q", body["message"])
	}
}

// TestWriteInternalServerError_ReturnsGenericError は想定外エラーの固定レスポンスを検証する。
func TestWriteInternalServerError_ReturnsGenericError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body["code"] != "internal_error" {
		t.Errorf("code = %q, want %q", body["code"], "internal_error")
	}
	if body["message"] != "Something went wrong. Please try again later." {
		t.Errorf("message = %q", body["message"])
	}
}
