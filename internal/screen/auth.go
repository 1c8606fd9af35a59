package screen

import (
	"context"

	"github.com/hitoshi/photoshare/internal/auth"
	"github.com/hitoshi/photoshare/internal/model"
)

// AuthScreen はログイン・登録画面。
type AuthScreen struct {
	auth *auth.Store
}

// NewAuthScreen はAuthScreenを生成する。
func NewAuthScreen(a *auth.Store) *AuthScreen {
	return &AuthScreen{auth: a}
}

// Enter は画面に入るたびに、入力を受け付ける前に呼び出す。
// 前回の試行のエラーと処理中状態を破棄する。
func (s *AuthScreen) Enter() {
	s.auth.ResetState()
}

// Login はログインする。
func (s *AuthScreen) Login(ctx context.Context, email, password string) error {
	return s.auth.Login(ctx, model.Credentials{Email: email, Password: password})
}

// Register はユーザーを登録する。
func (s *AuthScreen) Register(ctx context.Context, reg model.Registration) error {
	return s.auth.Register(ctx, reg)
}

// SubmitEnabled は送信ボタンを有効にしてよいかを返す。処理中は無効。
func (s *AuthScreen) SubmitEnabled() bool {
	return !s.auth.State().Loading()
}

// Error は表示するエラーメッセージを返す。
func (s *AuthScreen) Error() (string, bool) {
	st := s.auth.State()
	if st.Error == "" {
		return "", false
	}
	return st.Error, true
}
