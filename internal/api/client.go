// Package api はフォト共有バックエンドのREST APIクライアントを提供する。
// backendパッケージのAuthAPI、ProfileAPI、PhotoAPIを実装する。
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/hitoshi/photoshare/internal/metrics"
	"github.com/hitoshi/photoshare/internal/model"
	"github.com/hitoshi/photoshare/internal/security"
)

const (
	// userAgent はAPIリクエストに付与するUser-Agent。
	userAgent = "Photoshare/1.0 Client"
	// maxResponseSize はレスポンスボディの最大読み取りサイズ（10MB）。
	maxResponseSize = 10 << 20
)

// Client はバックエンドAPIのクライアント。
// 全リクエストはレートリミッターを通過してから送信される。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	limiter    *rate.Limiter
	tokens     oauth2.TokenSource
	sanitizer  security.TextSanitizerService
	metrics    metrics.Recorder
}

// Option はClientの任意設定。
type Option func(*Client)

// WithLimiter は送信レートを制限するリミッターを設定する。
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithTokenSource はAuthorizationヘッダーに使うトークンの取得元を設定する。
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithSanitizer は送受信するテキストのサニタイザーを設定する。
func WithSanitizer(s security.TextSanitizerService) Option {
	return func(c *Client) { c.sanitizer = s }
}

// WithRecorder はAPI呼び出しのメトリクス記録先を設定する。
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientのTransportはリクエストログとX-Request-ID付与のためにラップされる。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	wrapped := *httpClient
	wrapped.Transport = NewLoggingTransport(httpClient.Transport, logger)

	c := &Client{
		httpClient: &wrapped,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Inf, 0),
		sanitizer:  security.NewTextSanitizer(),
		metrics:    metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request は1回のAPI呼び出しの内容を表す。
type request struct {
	endpoint    string // メトリクスのラベル
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	notFound    func() *model.APIError // 404時のエラー。nilの場合は汎用エラー
}

// errorBody はバックエンドのエラーレスポンス形式。
type errorBody struct {
	Errors []string `json:"errors"`
}

// do はリクエストを送信し、成功時はoutにJSONをデコードする。
// 失敗時は必ず*model.APIErrorを返す。
func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.NewNetworkError(fmt.Errorf("レートリミッターの待機に失敗しました: %w", err))
	}

	reqURL, err := url.Parse(c.baseURL + r.path)
	if err != nil {
		return model.NewNetworkError(fmt.Errorf("リクエストURLのパースに失敗しました: %w", err))
	}
	if len(r.query) > 0 {
		reqURL.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), r.body)
	if err != nil {
		return model.NewNetworkError(fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	if c.tokens != nil {
		// 認証情報が読めない場合も未認証として送信し、ログインで復旧できるようにする
		tok, err := c.tokens.Token()
		if err != nil {
			c.logger.Warn("認証トークンの取得に失敗しました",
				slog.String("endpoint", r.endpoint),
				slog.String("error", err.Error()),
			)
		} else if tok.Valid() {
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordAPICall(r.endpoint, 0, time.Since(start))
		c.logger.Error("APIの呼び出しに失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(err)
	}
	defer resp.Body.Close()
	c.metrics.RecordAPICall(r.endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.errorFromResponse(r, resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("APIレスポンスのパースに失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err))
	}
	return nil
}

// errorFromResponse はエラーレスポンスを分類し、APIErrorに変換する。
func (c *Client) errorFromResponse(r request, statusCode int, body []byte) *model.APIError {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	message := ""
	if len(eb.Errors) > 0 {
		message = c.sanitizer.Sanitize(eb.Errors[0])
	}

	c.logger.Warn("APIがエラーステータスを返しました",
		slog.String("endpoint", r.endpoint),
		slog.Int("http_status", statusCode),
		slog.String("message", message),
	)

	kind := ClassifyStatus(statusCode)
	switch kind {
	case model.KindValidation:
		if message == "" {
			message = "入力内容に誤りがあります。"
		}
		return model.NewValidationError(model.ErrCodeInvalidInput, message)
	case model.KindAuth:
		return model.NewAuthError(message, nil)
	case model.KindNotFound:
		if r.notFound != nil {
			return r.notFound()
		}
		if message == "" {
			message = "対象が見つかりません。"
		}
		return &model.APIError{Code: model.ErrCodeNotFound, Kind: model.KindNotFound, Message: message}
	case model.KindConflict:
		if message == "" {
			message = "対象の状態が変更されています。"
		}
		return &model.APIError{Code: model.ErrCodeConflict, Kind: model.KindConflict, Message: message, Action: "再読み込みしてください。"}
	default:
		return &model.APIError{
			Code:    model.ErrCodeBackend,
			Kind:    model.KindNetwork,
			Message: "サーバーでエラーが発生しました。",
			Action:  "しばらく待ってから再度お試しください。",
			Err:     fmt.Errorf("status %d: %s", statusCode, message),
		}
	}
}

// jsonBody は値をJSONエンコードしたリクエストボディを返す。
func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, model.NewNetworkError(fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err))
	}
	return strings.NewReader(string(b)), nil
}
