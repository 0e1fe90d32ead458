// Package apiclient は外部APIサーバーへのHTTPクライアントを提供する。
// ビジネスロジックとデータ保存はすべて外部APIに委譲しており、
// このパッケージはリクエストの組み立てとエラーの正規化を担う。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/chatgate/internal/metrics"
	"github.com/hitoshi/chatgate/internal/model"
	"github.com/hitoshi/chatgate/internal/security"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBytes はレスポンスボディの読み取り上限。
const maxResponseBytes = 10 << 20

// Client は外部APIのクライアント。
// 起動時に1つ生成し、ハンドラーへインターフェース経由で注入する。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	sanitizer  security.TextSanitizer
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithMetrics はメトリクスコレクターを設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾のスラッシュは除去する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics.Nop{},
		sanitizer:  security.NewTextSanitizer(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewHTTPClient は外部API呼び出し用のhttp.Clientを生成する。
// トランスポートはOpenTelemetryで計装され、呼び出しごとにクライアントスパンを記録する。
// timeoutはリクエストコンテキストとは別の上限として働く。
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "upstream " + r.Method + " " + r.URL.Path
			}),
		),
	}
}

// request は外部APIへの1リクエストを表す。
type request struct {
	method string
	path   string     // エスケープ済みのパス
	label  string     // メトリクス・ログ用のエンドポイント名（IDを含まない）
	query  url.Values // nilの場合はクエリなし
	body   any        // nilの場合はボディなし

	// multipart送信時に使用する。設定されている場合bodyは無視する。
	rawBody     io.Reader
	contentType string
}

// response は外部APIのレスポンス。
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// empty はボディが空またはJSONのnullかどうかを返す。
func (r *response) empty() bool {
	b := bytes.TrimSpace(r.body)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

// send はリクエストを送信し、ステータスとボディを返す。
// 通信自体の失敗はbad_request:apiとして正規化する。リトライはしない。
func (c *Client) send(ctx context.Context, req request) (*response, error) {
	reqURL := c.baseURL + req.path
	if len(req.query) > 0 {
		reqURL += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := "application/json"
	switch {
	case req.rawBody != nil:
		body = req.rawBody
		contentType = req.contentType
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, reqURL, body)
	if err != nil {
		return nil, model.BadRequest(fmt.Sprintf("API request failed: %v", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordUpstreamFailure(req.label)
		c.logger.Error("external API request failed",
			slog.String("endpoint", req.label),
			slog.String("error", err.Error()),
		)
		return nil, model.BadRequest(fmt.Sprintf("API request failed: %v", err))
	}
	defer resp.Body.Close()

	c.metrics.RecordUpstreamRequest(req.label, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error("failed to read external API response",
			slog.String("endpoint", req.label),
			slog.String("error", err.Error()),
		)
		return nil, model.BadRequest(fmt.Sprintf("API request failed: %v", err))
	}

	return &response{status: resp.StatusCode, body: data}, nil
}

// upstreamError は2xx以外のレスポンスをbad_request:apiに変換する。
// 上流がmessageフィールドを返していればそれを原因とする。
// 原因はレスポンスにそのまま載るため、HTMLを除去したテキストにする。
func (c *Client) upstreamError(label string, resp *response) error {
	c.logger.Warn("external API returned error status",
		slog.String("endpoint", label),
		slog.Int("http_status", resp.status),
	)

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.body, &payload); err == nil {
		if msg := c.sanitizer.PlainText(payload.Message); msg != "" {
			return model.BadRequest(msg)
		}
	}
	return model.BadRequest(fmt.Sprintf("HTTP %d: %s", resp.status, http.StatusText(resp.status)))
}

// call はリクエストを送信し、成功時にボディをoutへデコードする。
// outがnilの場合はボディを読み捨てる。
func (c *Client) call(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return c.upstreamError(req.label, resp)
	}
	return c.decode(req.label, resp, out)
}

// getOptional はIDで単一リソースを取得する。
// 上流の404とnullは「存在しない」として(false, nil)を返す。
func (c *Client) getOptional(ctx context.Context, req request, out any) (bool, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return false, err
	}
	if resp.status == http.StatusNotFound {
		return false, nil
	}
	if !resp.ok() {
		return false, c.upstreamError(req.label, resp)
	}
	if resp.empty() {
		return false, nil
	}
	if err := c.decode(req.label, resp, out); err != nil {
		return false, err
	}
	return true, nil
}

// callRaw はレスポンスボディをそのまま返す。上流のJSONをクライアントへ素通しする用途。
// ボディが空の場合はnullを返す。
func (c *Client) callRaw(ctx context.Context, req request) (json.RawMessage, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.upstreamError(req.label, resp)
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(resp.body) {
		return nil, c.invalidJSON(req.label, nil)
	}
	return json.RawMessage(resp.body), nil
}

func (c *Client) decode(label string, resp *response, out any) error {
	if out == nil || resp.empty() {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return c.invalidJSON(label, err)
	}
	return nil
}

// invalidJSON は保存先サービスの壊れたレスポンスをbad_request:databaseにする。
// 詳細はログにのみ残り、クライアントには伏せられる。
func (c *Client) invalidJSON(label string, err error) error {
	msg := "invalid JSON"
	if err != nil {
		msg = err.Error()
	}
	c.logger.Error("failed to parse external API response",
		slog.String("endpoint", label),
		slog.String("error", msg),
	)
	return model.NewChatError(model.ErrorTypeBadRequest, model.SurfaceDatabase, msg)
}

// getList は一覧を取得する。上流の404は空リストとして扱う。
func getList[T any](ctx context.Context, c *Client, req request) ([]T, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return []T{}, nil
	}
	if !resp.ok() {
		return nil, c.upstreamError(req.label, resp)
	}
	items, err := decodeList[T](resp.body)
	if err != nil {
		return nil, c.invalidJSON(req.label, err)
	}
	return items, nil
}

// decodeList は単一オブジェクトと配列のどちらの形でも返しうるレスポンスを
// スライスに正規化する。空ボディとnullは空スライスになる。
func decodeList[T any](body []byte) ([]T, error) {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return []T{}, nil
	}

	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

// pathOf はIDなどのパスセグメントをエスケープしてパスを組み立てる。
func pathOf(segments ...string) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}
