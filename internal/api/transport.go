package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader はリクエストを追跡するためのヘッダー名。
const RequestIDHeader = "X-Request-ID"

// loggingTransport はAPIリクエストのJSON構造化ログを出力するhttp.RoundTripper。
type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

// NewLoggingTransport はリクエストログを出力し、X-Request-IDを付与するRoundTripperを返す。
// baseがnilの場合はhttp.DefaultTransportを使う。
func NewLoggingTransport(base http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger}
}

// RoundTrip はリクエストを送信し、method、path、status、duration_msをログに出力する。
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

	attrs := []any{
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.String("request_id", requestID),
		slog.Float64("duration_ms", durationMs),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		t.logger.Log(req.Context(), slog.LevelError, "api_request", attrs...)
		return nil, err
	}

	attrs = append(attrs, slog.Int("status", resp.StatusCode))

	// slogのログレベルをステータスコードに応じて変更
	level := slog.LevelInfo
	if resp.StatusCode >= 500 {
		level = slog.LevelError
	} else if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	t.logger.Log(req.Context(), level, "api_request", attrs...)
	return resp, nil
}
