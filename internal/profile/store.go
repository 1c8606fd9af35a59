// Package profile は閲覧中のユーザープロフィールを管理する。
// 閲覧中のユーザーはログイン中のユーザーと異なってもよい。
package profile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/photoshare/internal/backend"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/metrics"
	"github.com/hitoshi/photoshare/internal/model"
)

// StoreConfig はStoreの任意設定。
type StoreConfig struct {
	Clock    message.Clock
	Recorder metrics.Recorder
}

// Store はプロフィールを所有するストア。
type Store struct {
	api     backend.ProfileAPI
	logger  *slog.Logger
	metrics metrics.Recorder

	mu        sync.Mutex
	lifecycle lifecycle.Tracker
	userID    string // 最後に要求したユーザーID
	profile   *model.UserProfile
	messages  *message.Channel
}

// NewStore はStoreを生成する。
func NewStore(api backend.ProfileAPI, logger *slog.Logger, cfg StoreConfig) *Store {
	rec := cfg.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Store{
		api:      api,
		logger:   logger,
		metrics:  rec,
		messages: message.NewChannel("profile", cfg.Clock).WithRecorder(rec),
	}
}

// LoadProfile は指定ユーザーのプロフィールを取得し、丸ごと置き換える。
// 完了前に別のLoadProfileが呼ばれた場合、この呼び出しの結果は破棄されErrSupersededを返す。
func (s *Store) LoadProfile(ctx context.Context, userID string) error {
	s.mu.Lock()
	tk := s.lifecycle.Begin()
	s.userID = userID
	s.messages.Clear()
	s.mu.Unlock()

	p, err := s.api.GetProfile(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Current(tk) {
		s.metrics.RecordRequest("profile", "load", metrics.OutcomeSuperseded)
		s.logger.Debug("古いプロフィール取得結果を破棄しました", slog.String("user_id", userID))
		return model.ErrSuperseded
	}
	if err != nil {
		msg := model.UserMessage(err)
		s.lifecycle.Fail(tk, msg)
		s.profile = nil
		s.messages.Set(msg, message.Error)
		s.metrics.RecordRequest("profile", "load", metrics.OutcomeFailed)
		s.logger.Warn("プロフィールの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("kind", string(model.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return err
	}

	loaded := *p
	s.profile = &loaded
	s.lifecycle.Succeed(tk)
	s.metrics.RecordRequest("profile", "load", metrics.OutcomeSucceeded)
	return nil
}

// Profile は読み込み済みのプロフィールを返す。未取得または取得失敗時はfalseを返す。
func (s *Store) Profile() (model.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return model.UserProfile{}, false
	}
	return *s.profile, true
}

// UserID は最後に要求したユーザーIDを返す。
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// State はリクエスト状態を返す。
func (s *Store) State() lifecycle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.State()
}

// Message はプロフィールのメッセージを返す。
func (s *Store) Message() (message.Message, bool) {
	return s.messages.Current()
}
