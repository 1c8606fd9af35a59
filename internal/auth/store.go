// Package auth はログイン中のユーザーと、ログイン・登録・ログアウトの状態を管理する。
package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/photoshare/internal/backend"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/metrics"
	"github.com/hitoshi/photoshare/internal/model"
)

// メトリクスとログで使う操作名
const (
	opLogin    = "login"
	opRegister = "register"
	opRestore  = "restore"
)

// StoreConfig はStoreの任意設定。
type StoreConfig struct {
	Clock    message.Clock    // nilの場合はSystemClock
	Recorder metrics.Recorder // nilの場合は記録しない
}

// Store は認証セッションを所有するストア。
// 全メソッドは複数のゴルーチンから呼び出してよい。
type Store struct {
	api     backend.AuthAPI
	creds   backend.CredentialStore
	logger  *slog.Logger
	metrics metrics.Recorder

	mu        sync.Mutex
	lifecycle lifecycle.Tracker
	session   model.Session
	messages  *message.Channel
}

// NewStore はStoreを生成する。セッションは空の状態で始まる。
func NewStore(
	api backend.AuthAPI,
	creds backend.CredentialStore,
	logger *slog.Logger,
	cfg StoreConfig,
) *Store {
	rec := cfg.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Store{
		api:      api,
		creds:    creds,
		logger:   logger,
		metrics:  rec,
		messages: message.NewChannel("auth", cfg.Clock).WithRecorder(rec),
	}
}

// Login はメールアドレスとパスワードでログインする。
// 成功するとセッションが設定され、トークンが保存される。
func (s *Store) Login(ctx context.Context, creds model.Credentials) error {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return s.rejectInput(opLogin, model.NewValidationError(model.ErrCodeInvalidInput, "メールアドレスとパスワードを入力してください。"))
	}
	return s.authenticate(ctx, opLogin, func(ctx context.Context) (*model.AuthResult, error) {
		return s.api.Login(ctx, strings.TrimSpace(creds.Email), creds.Password)
	})
}

// Register はユーザーを登録してログインする。
// 必須項目の欠落とパスワード不一致は通信前にValidationErrorとして返す。
func (s *Store) Register(ctx context.Context, reg model.Registration) error {
	if strings.TrimSpace(reg.Name) == "" || strings.TrimSpace(reg.Email) == "" || reg.Password == "" {
		return s.rejectInput(opRegister, model.NewValidationError(model.ErrCodeInvalidInput, "名前、メールアドレス、パスワードは必須です。"))
	}
	if reg.Password != reg.ConfirmPassword {
		return s.rejectInput(opRegister, model.NewPasswordMismatchError())
	}
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	return s.authenticate(ctx, opRegister, func(ctx context.Context) (*model.AuthResult, error) {
		return s.api.Register(ctx, reg)
	})
}

// authenticate はログイン・登録に共通するリクエストの状態遷移を行う。
func (s *Store) authenticate(
	ctx context.Context,
	op string,
	call func(ctx context.Context) (*model.AuthResult, error),
) error {
	s.mu.Lock()
	if s.lifecycle.State().Loading() {
		s.mu.Unlock()
		s.metrics.RecordRequest("auth", op, metrics.OutcomeDuplicate)
		return model.ErrInFlight
	}
	tk := s.lifecycle.Begin()
	s.messages.Clear()
	s.mu.Unlock()

	result, err := call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Current(tk) {
		s.metrics.RecordRequest("auth", op, metrics.OutcomeSuperseded)
		return model.ErrSuperseded
	}
	if err != nil {
		s.failLocked(tk, op, err)
		return err
	}
	if err := s.creds.PersistToken(result.Token); err != nil {
		s.logger.Error("認証トークンの保存に失敗しました",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		saveErr := model.NewSessionCorruptError(err)
		s.failLocked(tk, op, saveErr)
		return saveErr
	}

	user := result.User
	s.session = model.Session{UserID: user.ID, Profile: &user}
	s.lifecycle.Succeed(tk)
	s.messages.Clear()
	s.metrics.RecordRequest("auth", op, metrics.OutcomeSucceeded)
	s.logger.Info("ログインしました",
		slog.String("op", op),
		slog.String("user_id", user.ID),
	)
	return nil
}

// rejectInput は入力不備を通信せずに失敗として反映する。
func (s *Store) rejectInput(op string, err *model.APIError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle.State().Loading() {
		return model.ErrInFlight
	}
	tk := s.lifecycle.Begin()
	s.failLocked(tk, op, err)
	return err
}

func (s *Store) failLocked(tk lifecycle.Ticket, op string, err error) {
	msg := model.UserMessage(err)
	s.lifecycle.Fail(tk, msg)
	s.messages.Set(msg, message.Error)
	s.metrics.RecordRequest("auth", op, metrics.OutcomeFailed)
	s.logger.Warn("認証に失敗しました",
		slog.String("op", op),
		slog.String("kind", string(model.KindOf(err))),
		slog.String("error", err.Error()),
	)
}

// Logout はセッション、保存済みトークン、メッセージをクリアする。
// 処理中のログイン・登録の結果は破棄される。
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := s.session.UserID
	s.clearSessionLocked()
	s.messages.Clear()

	if err := s.creds.ClearToken(); err != nil {
		s.logger.Error("認証トークンの削除に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.Info("ログアウトしました", slog.String("user_id", userID))
	return nil
}

// ResetState はリクエスト状態とメッセージだけをクリアする。セッションは変更しない。
// ログイン・登録画面に入るたびに、入力を受け付ける前に呼び出す。
func (s *Store) ResetState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifecycle.Reset()
	s.messages.Clear()
}

// Restore は保存済みトークンからセッションを復元する。
// トークンが壊れている場合、またはバックエンドが認証エラーを返した場合は強制ログアウトする。
// トークンが保存されていない場合は何もしない。
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.creds.ReadToken()
	if err != nil {
		corrupt := model.NewSessionCorruptError(err)
		s.mu.Lock()
		s.forceLogoutLocked(corrupt)
		s.mu.Unlock()
		return corrupt
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	if s.lifecycle.State().Loading() {
		s.mu.Unlock()
		s.metrics.RecordRequest("auth", opRestore, metrics.OutcomeDuplicate)
		return model.ErrInFlight
	}
	tk := s.lifecycle.Begin()
	s.mu.Unlock()

	user, err := s.api.Current(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Current(tk) {
		s.metrics.RecordRequest("auth", opRestore, metrics.OutcomeSuperseded)
		return model.ErrSuperseded
	}
	if err != nil {
		if model.IsKind(err, model.KindAuth) {
			s.forceLogoutLocked(err)
			return err
		}
		s.failLocked(tk, opRestore, err)
		return err
	}

	restored := *user
	s.session = model.Session{UserID: restored.ID, Profile: &restored}
	s.lifecycle.Succeed(tk)
	s.metrics.RecordRequest("auth", opRestore, metrics.OutcomeSucceeded)
	return nil
}

// HandleUnauthorized はerrが認証エラーの場合に強制ログアウトし、trueを返す。
// 他のストアの操作が認証エラーで失敗したときに呼び出す。
func (s *Store) HandleUnauthorized(err error) bool {
	if !model.IsKind(err, model.KindAuth) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Authenticated() {
		return false
	}
	s.forceLogoutLocked(err)
	return true
}

// forceLogoutLocked はセッションを破棄し、ログインし直すよう案内する。
func (s *Store) forceLogoutLocked(cause error) {
	s.logger.Warn("セッションが無効なため強制ログアウトします",
		slog.String("user_id", s.session.UserID),
		slog.String("error", cause.Error()),
	)
	s.clearSessionLocked()
	if err := s.creds.ClearToken(); err != nil {
		s.logger.Error("認証トークンの削除に失敗しました", slog.String("error", err.Error()))
	}
	s.messages.Set("セッションの有効期限が切れました。再度ログインしてください。", message.Info)
}

func (s *Store) clearSessionLocked() {
	s.lifecycle.Reset()
	s.session = model.Session{}
}

// Session は現在のセッションのスナップショットを返す。
func (s *Store) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.session
	if snap.Profile != nil {
		p := *snap.Profile
		snap.Profile = &p
	}
	return snap
}

// UserID はログイン中のユーザーIDを返す。未ログインの場合は空文字列。
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.UserID
}

// State はリクエスト状態を返す。
func (s *Store) State() lifecycle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.State()
}

// Message は認証メッセージを返す。
func (s *Store) Message() (message.Message, bool) {
	return s.messages.Current()
}
