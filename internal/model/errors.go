// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの原因カテゴリを表す。
// ストア境界でRequestLifecycleとメッセージに変換する際の分類に使う。
type ErrorKind string

const (
	// KindValidation はネットワーク呼び出し前に検出した入力不備。
	KindValidation ErrorKind = "validation"
	// KindAuth は認証情報の不正。
	KindAuth ErrorKind = "auth"
	// KindNotFound はプロフィールまたは写真が存在しない。
	KindNotFound ErrorKind = "not_found"
	// KindNetwork は通信失敗またはバックエンド障害。
	KindNetwork ErrorKind = "network"
	// KindConflict は既に存在しない写真への操作など、状態の競合。
	KindConflict ErrorKind = "conflict"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code    string    // エラーコード
	Kind    ErrorKind // カテゴリ
	Message string    // ユーザー向けメッセージ
	Action  string    // ユーザー向け対処方法
	Err     error     // 元のエラー（ログ用）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は元のエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeTitleRequired      = "TITLE_REQUIRED"
	ErrCodeImageRequired      = "IMAGE_REQUIRED"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodePasswordMismatch   = "PASSWORD_MISMATCH"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionCorrupt     = "SESSION_CORRUPT"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePhotoNotFound      = "PHOTO_NOT_FOUND"
	ErrCodePhotoGone          = "PHOTO_GONE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeNetwork            = "NETWORK_ERROR"
	ErrCodeBackend            = "BACKEND_ERROR"
)

var (
	// ErrSuperseded は新しいリクエストに置き換えられ、結果が破棄されたことを示す。
	ErrSuperseded = errors.New("request superseded by a newer one")
	// ErrInFlight は同じ操作・対象のリクエストが処理中であることを示す。
	ErrInFlight = errors.New("identical request already in flight")
)

// NewValidationError は入力不備エラーを生成する。
func NewValidationError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Kind:    KindValidation,
		Message: message,
		Action:  "入力内容を確認してください。",
	}
}

// NewTitleRequiredError はタイトル未入力エラーを生成する。
func NewTitleRequiredError() *APIError {
	return NewValidationError(ErrCodeTitleRequired, "タイトルは必須です。")
}

// NewImageRequiredError は画像未選択エラーを生成する。
func NewImageRequiredError() *APIError {
	return NewValidationError(ErrCodeImageRequired, "画像は必須です。")
}

// NewPasswordMismatchError はパスワード確認の不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return NewValidationError(ErrCodePasswordMismatch, "パスワードが一致しません。")
}

// NewAuthError は認証失敗エラーを生成する。
// messageが空の場合は既定のメッセージを使う。
func NewAuthError(message string, err error) *APIError {
	if message == "" {
		message = "メールアドレスまたはパスワードが正しくありません。"
	}
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Kind:    KindAuth,
		Message: message,
		Action:  "入力内容を確認し、もう一度ログインしてください。",
		Err:     err,
	}
}

// NewSessionCorruptError は保存済みセッションが読み取れない場合のエラーを生成する。
func NewSessionCorruptError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeSessionCorrupt,
		Kind:    KindAuth,
		Message: "保存されたセッションが無効です。",
		Action:  "ログインし直してください。",
		Err:     err,
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("ユーザーが見つかりません: %s", userID),
		Action:  "ユーザーIDを確認してください。",
	}
}

// NewPhotoNotFoundError は写真が見つからない場合のエラーを生成する。
func NewPhotoNotFoundError(photoID string) *APIError {
	return &APIError{
		Code:    ErrCodePhotoNotFound,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("写真が見つかりません: %s", photoID),
		Action:  "一覧を再読み込みしてください。",
	}
}

// NewPhotoGoneError は読み込み済みの一覧に存在しない写真を操作しようとした場合のエラーを生成する。
func NewPhotoGoneError(photoID string) *APIError {
	return &APIError{
		Code:    ErrCodePhotoGone,
		Kind:    KindConflict,
		Message: fmt.Sprintf("写真は既に存在しません: %s", photoID),
		Action:  "一覧を再読み込みしてください。",
	}
}

// NewNetworkError は通信失敗エラーを生成する。
func NewNetworkError(err error) *APIError {
	return &APIError{
		Code:    ErrCodeNetwork,
		Kind:    KindNetwork,
		Message: "サーバーとの通信に失敗しました。",
		Action:  "しばらく待ってから再度お試しください。",
		Err:     err,
	}
}

// KindOf はエラーのカテゴリを返す。
// APIErrorでないエラーはネットワークエラーとして扱う。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// IsKind はエラーが指定カテゴリかどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// UserMessage はエラーをユーザー向けの文言に変換する。
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return NewNetworkError(err).Message
}
