package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/chatgate/internal/apiclient"
	"github.com/hitoshi/chatgate/internal/middleware"
	"github.com/hitoshi/chatgate/internal/model"
)

// --- モック定義 ---

// mockExternalAPI はExternalAPIのモック実装。
// 未設定のメソッドは「存在しない」扱いのゼロ値を返す。
type mockExternalAPI struct {
	authenticateUserFn     func(ctx context.Context, email, password string) (*model.User, error)
	getUsersByEmailFn      func(ctx context.Context, email string) ([]model.User, error)
	createUserFn           func(ctx context.Context, email, password string) (*model.User, error)
	getChatFn              func(ctx context.Context, id string) (*model.Chat, error)
	getChatsByUserFn       func(ctx context.Context, userID string, params apiclient.ChatListParams) (json.RawMessage, error)
	saveChatFn             func(ctx context.Context, chat model.Chat) error
	deleteChatFn           func(ctx context.Context, id string) (json.RawMessage, error)
	updateChatVisibilityFn func(ctx context.Context, id string, visibility model.Visibility) (json.RawMessage, error)
	getMessagesFn          func(ctx context.Context, chatID string) ([]model.Message, error)
	saveMessagesFn         func(ctx context.Context, messages []model.Message) error
	getMessageFn           func(ctx context.Context, id string) (*model.Message, error)
	deleteMessagesAfterFn  func(ctx context.Context, chatID string, timestamp time.Time) error
	getMessageCountFn      func(ctx context.Context, userID string, hours int) (int, error)
	createStreamFn         func(ctx context.Context, chatID string) error
	getVotesFn             func(ctx context.Context, chatID string) ([]model.Vote, error)
	voteMessageFn          func(ctx context.Context, vote apiclient.VoteRequest) (json.RawMessage, error)
	getDocumentsFn         func(ctx context.Context, id string) ([]model.Document, error)
	saveDocumentFn         func(ctx context.Context, doc model.Document) (json.RawMessage, error)
	deleteDocumentsAfterFn func(ctx context.Context, id string, timestamp time.Time) (json.RawMessage, error)
	getSuggestionsFn       func(ctx context.Context, documentID string) ([]model.Suggestion, error)
	uploadFileFn           func(ctx context.Context, f apiclient.FileUpload) (*model.UploadedFile, error)
}

func (m *mockExternalAPI) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	if m.authenticateUserFn != nil {
		return m.authenticateUserFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockExternalAPI) GetUsersByEmail(ctx context.Context, email string) ([]model.User, error) {
	if m.getUsersByEmailFn != nil {
		return m.getUsersByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockExternalAPI) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockExternalAPI) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	if m.getChatFn != nil {
		return m.getChatFn(ctx, id)
	}
	return nil, nil
}

func (m *mockExternalAPI) GetChatsByUser(ctx context.Context, userID string, params apiclient.ChatListParams) (json.RawMessage, error) {
	if m.getChatsByUserFn != nil {
		return m.getChatsByUserFn(ctx, userID, params)
	}
	return json.RawMessage(`{"chats":[],"hasMore":false}`), nil
}

func (m *mockExternalAPI) SaveChat(ctx context.Context, chat model.Chat) error {
	if m.saveChatFn != nil {
		return m.saveChatFn(ctx, chat)
	}
	return nil
}

func (m *mockExternalAPI) DeleteChat(ctx context.Context, id string) (json.RawMessage, error) {
	if m.deleteChatFn != nil {
		return m.deleteChatFn(ctx, id)
	}
	return json.RawMessage(`null`), nil
}

func (m *mockExternalAPI) UpdateChatVisibility(ctx context.Context, id string, visibility model.Visibility) (json.RawMessage, error) {
	if m.updateChatVisibilityFn != nil {
		return m.updateChatVisibilityFn(ctx, id, visibility)
	}
	return json.RawMessage(`null`), nil
}

func (m *mockExternalAPI) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	if m.getMessagesFn != nil {
		return m.getMessagesFn(ctx, chatID)
	}
	return []model.Message{}, nil
}

func (m *mockExternalAPI) SaveMessages(ctx context.Context, messages []model.Message) error {
	if m.saveMessagesFn != nil {
		return m.saveMessagesFn(ctx, messages)
	}
	return nil
}

func (m *mockExternalAPI) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	if m.getMessageFn != nil {
		return m.getMessageFn(ctx, id)
	}
	return nil, nil
}

func (m *mockExternalAPI) DeleteMessagesAfter(ctx context.Context, chatID string, timestamp time.Time) error {
	if m.deleteMessagesAfterFn != nil {
		return m.deleteMessagesAfterFn(ctx, chatID, timestamp)
	}
	return nil
}

func (m *mockExternalAPI) GetMessageCount(ctx context.Context, userID string, hours int) (int, error) {
	if m.getMessageCountFn != nil {
		return m.getMessageCountFn(ctx, userID, hours)
	}
	return 0, nil
}

func (m *mockExternalAPI) CreateStream(ctx context.Context, chatID string) error {
	if m.createStreamFn != nil {
		return m.createStreamFn(ctx, chatID)
	}
	return nil
}

func (m *mockExternalAPI) GetVotes(ctx context.Context, chatID string) ([]model.Vote, error) {
	if m.getVotesFn != nil {
		return m.getVotesFn(ctx, chatID)
	}
	return []model.Vote{}, nil
}

func (m *mockExternalAPI) VoteMessage(ctx context.Context, vote apiclient.VoteRequest) (json.RawMessage, error) {
	if m.voteMessageFn != nil {
		return m.voteMessageFn(ctx, vote)
	}
	return json.RawMessage(`null`), nil
}

func (m *mockExternalAPI) GetDocuments(ctx context.Context, id string) ([]model.Document, error) {
	if m.getDocumentsFn != nil {
		return m.getDocumentsFn(ctx, id)
	}
	return []model.Document{}, nil
}

func (m *mockExternalAPI) SaveDocument(ctx context.Context, doc model.Document) (json.RawMessage, error) {
	if m.saveDocumentFn != nil {
		return m.saveDocumentFn(ctx, doc)
	}
	return json.RawMessage(`null`), nil
}

func (m *mockExternalAPI) DeleteDocumentsAfter(ctx context.Context, id string, timestamp time.Time) (json.RawMessage, error) {
	if m.deleteDocumentsAfterFn != nil {
		return m.deleteDocumentsAfterFn(ctx, id, timestamp)
	}
	return json.RawMessage(`null`), nil
}

func (m *mockExternalAPI) GetSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	if m.getSuggestionsFn != nil {
		return m.getSuggestionsFn(ctx, documentID)
	}
	return []model.Suggestion{}, nil
}

func (m *mockExternalAPI) UploadFile(ctx context.Context, f apiclient.FileUpload) (*model.UploadedFile, error) {
	if m.uploadFileFn != nil {
		return m.uploadFileFn(ctx, f)
	}
	return &model.UploadedFile{}, nil
}

// mockSessionStore はSessionStoreのモック実装。
type mockSessionStore struct {
	session *model.Session
	issued  []model.User
	revoked int
	issueFn func(user model.User) (model.Session, error)
}

func (m *mockSessionStore) Read(_ http.ResponseWriter, _ *http.Request) (model.Session, bool) {
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

func (m *mockSessionStore) Issue(_ http.ResponseWriter, user model.User) (model.Session, error) {
	m.issued = append(m.issued, user)
	if m.issueFn != nil {
		return m.issueFn(user)
	}
	return model.Session{User: user, Expires: time.Now().Add(time.Hour)}, nil
}

func (m *mockSessionStore) Revoke(_ http.ResponseWriter) {
	m.revoked++
}

// --- テストヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(userID string) model.Session {
	return model.Session{
		User:    model.User{ID: userID, Email: userID + "@example.com"},
		Expires: time.Now().Add(time.Hour),
	}
}

// withSession はテスト用にリクエストコンテキストにセッションを注入するヘルパー。
func withSession(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithSession(r.Context(), testSession(userID))
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorResponse はレスポンスボディから統一エラーレスポンスをパースするヘルパー。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// assertChatError はステータスとエラーコードを検証するヘルパー。
func assertChatError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	body := parseErrorResponse(t, w)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
	if body.Message == "" {
		t.Error("message should not be empty")
	}
}

// failIfCalled は呼ばれてはいけない外部API呼び出しを検出する。
func failIfCalled(t *testing.T, name string) {
	t.Helper()
	t.Errorf("%s should not be called", name)
}
