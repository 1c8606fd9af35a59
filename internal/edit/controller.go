// Package edit は画面ごとに1件だけ編集対象の写真を選ぶ状態機械を提供する。
//
// 状態はEmptyとEditing(photoID)の2つだけで、新規投稿フォームと編集フォームの
// どちらを表示するかはこの状態から導出する。
package edit

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/hitoshi/photoshare/internal/model"
	"github.com/hitoshi/photoshare/internal/photo"
)

// ErrNotEditing は編集対象がない状態で送信しようとしたことを示す。
var ErrNotEditing = errors.New("no photo is being edited")

// State は編集対象の状態。
type State int

const (
	// Empty は編集対象がない状態。
	Empty State = iota
	// Editing は写真を1件編集している状態。
	Editing
)

// String は状態名を返す。
func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "empty"
}

// Form はビューに表示するフォーム。
type Form int

const (
	// FormNew は新規投稿フォーム。
	FormNew Form = iota
	// FormEdit は編集フォーム。
	FormEdit
)

// Target は編集中の写真と作業中の入力値。
type Target struct {
	PhotoID  string
	Title    string
	ImageRef string
}

// PhotoStore はControllerが利用する写真ストアの操作。
type PhotoStore interface {
	Update(ctx context.Context, photoID, title string) error
	Subscribe(fn func(photo.Event)) (unsubscribe func())
}

// Controller は編集対象を管理する。
// 写真ストアのイベントを購読し、編集中の写真が更新・削除されるか、
// 読み込み直したコレクションに含まれなくなったらEmptyに戻る。
type Controller struct {
	store       PhotoStore
	unsubscribe func()

	mu     sync.Mutex
	target *Target
}

// NewController はControllerを生成し、写真ストアのイベント購読を開始する。
// 不要になったらCloseで購読を解除する。
func NewController(store PhotoStore) *Controller {
	c := &Controller{store: store}
	c.unsubscribe = store.Subscribe(c.handleEvent)
	return c
}

// Close はイベント購読を解除する。
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// BeginEdit は写真の現在のタイトルと画像を作業値として編集を開始する。
// 別の写真を編集中の場合は、その作業値を破棄して対象を置き換える。
func (c *Controller) BeginEdit(p model.Photo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = &Target{PhotoID: p.ID, Title: p.Title, ImageRef: p.ImageRef}
}

// SetTitle は作業中のタイトルを変更する。編集中でない場合はfalseを返す。
func (c *Controller) SetTitle(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return false
	}
	c.target.Title = title
	return true
}

// Cancel は写真を変更せずに編集を終了する。
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = nil
}

// Submit は作業中のタイトルで写真を更新する。
// 成功するとEmptyに戻り、失敗した場合は再送信できるようEditingのまま残る。
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.target == nil {
		c.mu.Unlock()
		return ErrNotEditing
	}
	t := *c.target
	c.mu.Unlock()

	// ストアは更新イベントを同期的に通知するので、ロックを保持したまま呼ばない
	if err := c.store.Update(ctx, t.PhotoID, t.Title); err != nil {
		return err
	}
	c.clearIf(t.PhotoID)
	return nil
}

func (c *Controller) handleEvent(ev photo.Event) {
	switch ev.Kind {
	case photo.EventUpdated, photo.EventDeleted:
		c.clearIf(ev.PhotoID)
	case photo.EventReplaced:
		c.clearUnless(ev.PhotoIDs)
	}
}

// clearUnless は編集中の写真がidsに含まれない場合にEmptyに戻す。
func (c *Controller) clearUnless(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil || slices.Contains(ids, c.target.PhotoID) {
		return
	}
	c.target = nil
}

// clearIf は指定した写真を編集中の場合だけEmptyに戻す。
func (c *Controller) clearIf(photoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target != nil && c.target.PhotoID == photoID {
		c.target = nil
	}
}

// Target は編集対象のスナップショットを返す。Emptyの場合はfalseを返す。
func (c *Controller) Target() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return Target{}, false
	}
	return *c.target, true
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return Empty
	}
	return Editing
}

// Form は表示すべきフォームを返す。
func (c *Controller) Form() Form {
	if c.State() == Editing {
		return FormEdit
	}
	return FormNew
}
