// Package middleware はクライアントが公開するHTTPエンドポイント（メトリクス）用のミドルウェアを提供する。
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はメトリクス収集中のpanicを回復するミドルウェアを生成する。
// スクレイパーが次の周期で再試行できるよう503を返し、コマンドの実行は継続させる。
// スタックトレースはDebugレベルでのみ出力する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				logger.Error("メトリクスの出力中にpanicが発生しました",
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("path", r.URL.Path),
				)
				logger.Debug("panic stack", slog.String("stack", string(debug.Stack())))
				http.Error(w, "metrics temporarily unavailable", http.StatusServiceUnavailable)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
