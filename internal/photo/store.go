// Package photo は読み込み済みの写真コレクションと、その変更操作を管理する。
//
// コレクションは常に1つのスコープ（ユーザーの一覧、検索結果、写真1件）だけを保持する。
// スコープの切り替えはコレクション全体の置き換えで行い、複数スコープを混在させない。
package photo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/photoshare/internal/backend"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/metrics"
	"github.com/hitoshi/photoshare/internal/model"
)

// StoreConfig はStoreの任意設定。
type StoreConfig struct {
	Clock      message.Clock
	Recorder   metrics.Recorder
	ClearDelay time.Duration // 0の場合はmessage.DefaultClearDelay
}

// Store は写真コレクションを所有するストア。
//
// 読み込みは最後に要求したものだけが反映される。変更操作は操作と対象ごとに
// 同時に1つしか実行されず、結果のメッセージは共通のチャネルに出力される。
type Store struct {
	api        backend.PhotoAPI
	logger     *slog.Logger
	metrics    metrics.Recorder
	clearDelay time.Duration

	mu       sync.Mutex
	photos   []model.Photo
	scope    Scope
	loads    lifecycle.Tracker
	mutation lifecycle.Tracker
	inflight map[string]struct{}
	messages *message.Channel
	subs     map[int]func(Event)
	nextSub  int
}

// NewStore はStoreを生成する。
func NewStore(api backend.PhotoAPI, logger *slog.Logger, cfg StoreConfig) *Store {
	rec := cfg.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	delay := cfg.ClearDelay
	if delay <= 0 {
		delay = message.DefaultClearDelay
	}
	return &Store{
		api:        api,
		logger:     logger,
		metrics:    rec,
		clearDelay: delay,
		inflight:   make(map[string]struct{}),
		messages:   message.NewChannel("photo", cfg.Clock).WithRecorder(rec),
		subs:       make(map[int]func(Event)),
	}
}

// Subscribe は変更イベントの購読を登録し、購読を解除する関数を返す。
// fnはストアのロック外で、変更を行ったゴルーチンから呼び出される。
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// LoadByOwner は指定ユーザーの写真一覧でコレクションを置き換える。
func (s *Store) LoadByOwner(ctx context.Context, userID string) error {
	return s.load(ctx, Scope{Kind: ScopeOwner, Key: userID}, func(ctx context.Context) ([]model.Photo, error) {
		return s.api.ListByOwner(ctx, userID)
	})
}

// LoadBySearch は検索結果でコレクションを置き換える。
func (s *Store) LoadBySearch(ctx context.Context, term string) error {
	return s.load(ctx, Scope{Kind: ScopeSearch, Key: term}, func(ctx context.Context) ([]model.Photo, error) {
		return s.api.ListBySearch(ctx, term)
	})
}

// LoadOne は写真1件でコレクションを置き換える。
func (s *Store) LoadOne(ctx context.Context, photoID string) error {
	return s.load(ctx, Scope{Kind: ScopeSingle, Key: photoID}, func(ctx context.Context) ([]model.Photo, error) {
		p, err := s.api.GetOne(ctx, photoID)
		if err != nil {
			return nil, err
		}
		return []model.Photo{*p}, nil
	})
}

// load は読み込みを実行し、最新の要求であればコレクションとスコープを置き換える。
// 同じキーの再要求も含め、後から開始した読み込みが常に優先される。
// 置き換えた場合は失敗時も含めてEventReplacedを通知する。
func (s *Store) load(ctx context.Context, scope Scope, fetch func(ctx context.Context) ([]model.Photo, error)) error {
	s.mu.Lock()
	tk := s.loads.Begin()
	s.mu.Unlock()

	photos, err := fetch(ctx)

	s.mu.Lock()
	if !s.loads.Current(tk) {
		s.mu.Unlock()
		s.metrics.RecordRequest("photo", "load", metrics.OutcomeSuperseded)
		s.logger.Debug("古い読み込み結果を破棄しました", slog.String("scope", scope.String()))
		return model.ErrSuperseded
	}
	if err != nil {
		msg := model.UserMessage(err)
		s.loads.Fail(tk, msg)
		// 別スコープの写真を表示し続けないよう、失敗時も空のコレクションに置き換える
		s.photos = nil
		s.scope = scope
		s.showLocked(msg, message.Error)
		s.mu.Unlock()

		s.metrics.RecordRequest("photo", "load", metrics.OutcomeFailed)
		s.logger.Warn("写真の読み込みに失敗しました",
			slog.String("scope", scope.String()),
			slog.String("kind", string(model.KindOf(err))),
			slog.String("error", err.Error()),
		)
		s.emit(Event{Kind: EventReplaced})
		return err
	}

	s.photos = uniqueByID(photos)
	s.scope = scope
	s.loads.Succeed(tk)
	loaded := photoIDs(s.photos)
	s.mu.Unlock()

	s.metrics.RecordRequest("photo", "load", metrics.OutcomeSucceeded)
	s.logger.Debug("写真を読み込みました",
		slog.String("scope", scope.String()),
		slog.Int("photo_count", len(loaded)),
	)
	s.emit(Event{Kind: EventReplaced, PhotoIDs: loaded})
	return nil
}

// Publish はタイトルと画像を検証してから写真を公開する。
// 現在のスコープが公開者の一覧であれば、公開した写真をコレクションの末尾に追加する。
// エラーがnilであれば、呼び出し側は入力欄をリセットしてよい。
func (s *Store) Publish(ctx context.Context, title string, image model.Image) (model.Photo, error) {
	title = strings.TrimSpace(title)

	s.mu.Lock()
	if title == "" {
		err := model.NewTitleRequiredError()
		s.rejectLocked(OpPublish, "", err)
		s.mu.Unlock()
		return model.Photo{}, err
	}
	if image.Empty() {
		err := model.NewImageRequiredError()
		s.rejectLocked(OpPublish, "", err)
		s.mu.Unlock()
		return model.Photo{}, err
	}
	tk, err := s.beginLocked(OpPublish, "")
	s.mu.Unlock()
	if err != nil {
		return model.Photo{}, err
	}

	created, err := s.api.Create(ctx, title, image)

	s.mu.Lock()
	s.endLocked(OpPublish, "")
	if err != nil {
		s.failLocked(tk, OpPublish, "", err)
		s.mu.Unlock()
		return model.Photo{}, err
	}

	p := created.Clone()
	if s.scope.Kind == ScopeOwner && s.scope.Key == p.OwnerID {
		if _, exists := s.indexLocked(p.ID); !exists {
			s.photos = append(s.photos, p)
		}
	}
	s.succeedLocked(tk, OpPublish, p.ID, "写真を公開しました。")
	s.mu.Unlock()

	s.emit(Event{Kind: EventPublished, PhotoID: p.ID, Photo: p.Clone()})
	return p.Clone(), nil
}

// Update は写真のタイトルを更新する。
// コレクションに存在しない写真はNotFoundErrorとなり、通信しない。
// 成功時は位置といいねを保ったままタイトルだけを置き換える。
func (s *Store) Update(ctx context.Context, photoID, title string) error {
	title = strings.TrimSpace(title)

	s.mu.Lock()
	if _, ok := s.indexLocked(photoID); !ok {
		err := model.NewPhotoNotFoundError(photoID)
		s.rejectLocked(OpUpdate, photoID, err)
		s.mu.Unlock()
		return err
	}
	if title == "" {
		err := model.NewTitleRequiredError()
		s.rejectLocked(OpUpdate, photoID, err)
		s.mu.Unlock()
		return err
	}
	tk, err := s.beginLocked(OpUpdate, photoID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	updated, err := s.api.Update(ctx, photoID, title)

	s.mu.Lock()
	s.endLocked(OpUpdate, photoID)
	if err != nil {
		s.failLocked(tk, OpUpdate, photoID, err)
		s.mu.Unlock()
		return err
	}

	if updated != nil && updated.Title != "" {
		title = updated.Title
	}
	ev := Event{Kind: EventUpdated, PhotoID: photoID}
	if i, ok := s.indexLocked(photoID); ok {
		s.photos[i].Title = title
		ev.Photo = s.photos[i].Clone()
	}
	s.succeedLocked(tk, OpUpdate, photoID, "写真を更新しました。")
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Delete は写真を削除し、コレクションから取り除く。
// コレクションに存在しない写真はConflictErrorとなり、通信しない。
// バックエンドで既に削除されていた場合もコレクションから取り除いた上でConflictErrorを返す。
func (s *Store) Delete(ctx context.Context, photoID string) error {
	s.mu.Lock()
	if _, ok := s.indexLocked(photoID); !ok {
		err := model.NewPhotoGoneError(photoID)
		s.rejectLocked(OpDelete, photoID, err)
		s.mu.Unlock()
		return err
	}
	tk, err := s.beginLocked(OpDelete, photoID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	err = s.api.Delete(ctx, photoID)

	s.mu.Lock()
	s.endLocked(OpDelete, photoID)
	switch {
	case err == nil:
		s.removeLocked(photoID)
		s.succeedLocked(tk, OpDelete, photoID, "写真を削除しました。")
	case model.IsKind(err, model.KindNotFound):
		s.removeLocked(photoID)
		err = model.NewPhotoGoneError(photoID)
		s.failLocked(tk, OpDelete, photoID, err)
	default:
		s.failLocked(tk, OpDelete, photoID, err)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventDeleted, PhotoID: photoID})
	return err
}

// ToggleLike はユーザーのいいねを反転する。
// サーバーの確認後にだけlikesを変更するため、失敗時にlikesは変化しない。
// バックエンドが写真を返した場合はそのlikesで置き換え、返さない場合は送信した方向を反映する。
// 送信する方向は現在の状態から決めるので、同じユーザーのいいねが重複することはない。
func (s *Store) ToggleLike(ctx context.Context, photoID, userID string) error {
	s.mu.Lock()
	if userID == "" {
		err := model.NewAuthError("いいねするにはログインしてください。", nil)
		s.rejectLocked(OpLike, photoID, err)
		s.mu.Unlock()
		return err
	}
	i, ok := s.indexLocked(photoID)
	if !ok {
		err := model.NewPhotoGoneError(photoID)
		s.rejectLocked(OpLike, photoID, err)
		s.mu.Unlock()
		return err
	}
	like := !s.photos[i].LikedBy(userID)
	tk, err := s.beginLocked(OpLike, photoID)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	confirmed, err := s.api.Like(ctx, photoID, like)

	s.mu.Lock()
	s.endLocked(OpLike, photoID)
	if err != nil {
		s.failLocked(tk, OpLike, photoID, err)
		s.mu.Unlock()
		return err
	}

	ev := Event{Kind: EventLiked, PhotoID: photoID}
	if i, ok := s.indexLocked(photoID); ok {
		switch {
		case confirmed != nil && confirmed.ID == photoID:
			// バックエンドが返したlikesを正とする
			s.photos[i].Likes = confirmed.Clone().Likes
		case like:
			if s.photos[i].Likes == nil {
				s.photos[i].Likes = model.NewLikes()
			}
			s.photos[i].Likes[userID] = struct{}{}
		default:
			delete(s.photos[i].Likes, userID)
		}
		ev.Photo = s.photos[i].Clone()
	}
	text := "いいねしました。"
	if !like {
		text = "いいねを取り消しました。"
	}
	s.succeedLocked(tk, OpLike, photoID, text)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// --- ロック下で呼び出す補助関数 ---

func inflightKey(op Op, target string) string {
	return string(op) + ":" + target
}

// beginLocked は同じ操作・対象の重複を拒否し、変更リクエストを開始する。
func (s *Store) beginLocked(op Op, target string) (lifecycle.Ticket, error) {
	key := inflightKey(op, target)
	if _, busy := s.inflight[key]; busy {
		s.metrics.RecordRequest("photo", string(op), metrics.OutcomeDuplicate)
		s.logger.Debug("処理中の操作と重複するため拒否しました",
			slog.String("op", string(op)),
			slog.String("photo_id", target),
		)
		return 0, model.ErrInFlight
	}
	s.inflight[key] = struct{}{}
	return s.mutation.Begin(), nil
}

func (s *Store) endLocked(op Op, target string) {
	delete(s.inflight, inflightKey(op, target))
}

// rejectLocked は通信前に検出したエラーを失敗として反映する。
func (s *Store) rejectLocked(op Op, target string, err error) {
	tk := s.mutation.Begin()
	s.failLocked(tk, op, target, err)
}

// failLocked は変更操作の失敗をリクエスト状態とメッセージに反映する。
// 後から開始した変更がある場合、リクエスト状態はそちらに任せる。
func (s *Store) failLocked(tk lifecycle.Ticket, op Op, target string, err error) {
	msg := model.UserMessage(err)
	s.mutation.Fail(tk, msg)
	s.showLocked(msg, message.Error)
	s.metrics.RecordRequest("photo", string(op), metrics.OutcomeFailed)
	s.logger.Warn("写真の操作に失敗しました",
		slog.String("op", string(op)),
		slog.String("photo_id", target),
		slog.String("kind", string(model.KindOf(err))),
		slog.String("error", err.Error()),
	)
}

func (s *Store) succeedLocked(tk lifecycle.Ticket, op Op, target, text string) {
	s.mutation.Succeed(tk)
	s.showLocked(text, message.Success)
	s.metrics.RecordRequest("photo", string(op), metrics.OutcomeSucceeded)
	s.logger.Info("写真を操作しました",
		slog.String("op", string(op)),
		slog.String("photo_id", target),
		slog.String("scope", s.scope.String()),
	)
}

// showLocked はメッセージを表示し、共通の遅延で自動クリアを予約する。
func (s *Store) showLocked(text string, kind message.Kind) {
	s.messages.Set(text, kind)
	s.messages.ScheduleAutoClear(s.clearDelay)
}

func (s *Store) indexLocked(photoID string) (int, bool) {
	for i := range s.photos {
		if s.photos[i].ID == photoID {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) removeLocked(photoID string) {
	if i, ok := s.indexLocked(photoID); ok {
		s.photos = append(s.photos[:i], s.photos[i+1:]...)
	}
}

// emit は購読者にイベントを通知する。ロックを保持せずに呼び出すこと。
func (s *Store) emit(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func photoIDs(photos []model.Photo) []string {
	out := make([]string, len(photos))
	for i, p := range photos {
		out[i] = p.ID
	}
	return out
}

// uniqueByID はIDの重複を最初の1件だけ残して除去し、likesをコピーした新しいスライスを返す。
func uniqueByID(photos []model.Photo) []model.Photo {
	seen := make(map[string]struct{}, len(photos))
	out := make([]model.Photo, 0, len(photos))
	for _, p := range photos {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p.Clone())
	}
	return out
}

// --- スナップショット ---

// Photos は読み込み済みの写真のコピーを順序どおりに返す。
func (s *Store) Photos() []model.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Photo, len(s.photos))
	for i, p := range s.photos {
		out[i] = p.Clone()
	}
	return out
}

// Photo は指定IDの写真のコピーを返す。
func (s *Store) Photo(photoID string) (model.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.indexLocked(photoID); ok {
		return s.photos[i].Clone(), true
	}
	return model.Photo{}, false
}

// Scope は現在のスコープを返す。
func (s *Store) Scope() Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// LoadState は読み込みのリクエスト状態を返す。
func (s *Store) LoadState() lifecycle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads.State()
}

// MutationState は最後に開始した変更操作のリクエスト状態を返す。
func (s *Store) MutationState() lifecycle.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutation.State()
}

// Pending は指定した操作・対象が処理中かどうかを返す。公開の対象は空文字列。
// ビューはこれを使って送信ボタンを無効化する。
func (s *Store) Pending(op Op, photoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[inflightKey(op, photoID)]
	return ok
}

// Message は写真操作の共通メッセージを返す。
func (s *Store) Message() (message.Message, bool) {
	return s.messages.Current()
}
