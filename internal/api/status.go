package api

import (
	"net/http"

	"github.com/hitoshi/photoshare/internal/model"
)

// ClassifyStatus はHTTPエラーステータスコードをエラー種別に分類する。
// 分類できないステータスはネットワーク起因として扱う。
func ClassifyStatus(statusCode int) model.ErrorKind {
	switch {
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return model.KindValidation
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return model.KindAuth
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return model.KindNotFound
	case statusCode == http.StatusConflict:
		return model.KindConflict
	default:
		// 429と5xxもここに含まれる
		return model.KindNetwork
	}
}
