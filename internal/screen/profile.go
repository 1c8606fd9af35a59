package screen

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/photoshare/internal/asset"
	"github.com/hitoshi/photoshare/internal/auth"
	"github.com/hitoshi/photoshare/internal/edit"
	"github.com/hitoshi/photoshare/internal/lifecycle"
	"github.com/hitoshi/photoshare/internal/message"
	"github.com/hitoshi/photoshare/internal/model"
	"github.com/hitoshi/photoshare/internal/photo"
	"github.com/hitoshi/photoshare/internal/profile"
)

// ProfileView はプロフィール画面の表示用スナップショット。
type ProfileView struct {
	Profile    model.UserProfile
	AvatarURL  string
	Loading    bool
	Error      string
	IsOwner    bool // 投稿・編集・削除の操作を表示するか
	Photos     []PhotoView
	Form       edit.Form
	EditTarget edit.Target
	Publishing bool
	Message    *message.Message
}

// ProfileScreen はプロフィール画面。
// 所有者の場合は写真の公開・編集・削除ができる。
type ProfileScreen struct {
	auth     *auth.Store
	profiles *profile.Store
	photos   *photo.Store
	editor   *edit.Controller
	assets   *asset.Resolver

	mu       sync.Mutex
	userID   string
	newTitle string
	newImage model.Image
}

// NewProfileScreen はProfileScreenを生成する。不要になったらCloseを呼び出す。
func NewProfileScreen(
	a *auth.Store,
	profiles *profile.Store,
	photos *photo.Store,
	assets *asset.Resolver,
) *ProfileScreen {
	return &ProfileScreen{
		auth:     a,
		profiles: profiles,
		photos:   photos,
		editor:   edit.NewController(photos),
		assets:   assets,
	}
}

// Close は編集コントローラーのイベント購読を解除する。
func (s *ProfileScreen) Close() {
	s.editor.Close()
}

// Enter はプロフィールと写真一覧を並行して読み込む。
// 別のユーザーに移動した場合は編集中の対象を破棄する。
func (s *ProfileScreen) Enter(ctx context.Context, userID string) error {
	s.mu.Lock()
	changed := s.userID != userID
	s.userID = userID
	s.mu.Unlock()
	if changed {
		s.editor.Cancel()
	}

	var g errgroup.Group
	g.Go(func() error { return s.profiles.LoadProfile(ctx, userID) })
	g.Go(func() error { return s.photos.LoadByOwner(ctx, userID) })
	return s.check(g.Wait())
}

// IsOwner は閲覧者がこのプロフィールの所有者かどうかを返す。
func (s *ProfileScreen) IsOwner() bool {
	viewer := s.auth.UserID()
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewer != "" && viewer == s.userID
}

// SetNewTitle は新規投稿フォームのタイトルを設定する。
func (s *ProfileScreen) SetNewTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newTitle = title
}

// SetNewImage は新規投稿フォームの画像を設定する。
func (s *ProfileScreen) SetNewImage(image model.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newImage = image
}

// NewForm は新規投稿フォームの入力値を返す。
func (s *ProfileScreen) NewForm() (string, model.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newTitle, s.newImage
}

// Publish は新規投稿フォームの内容で写真を公開する。成功すると入力値をリセットする。
func (s *ProfileScreen) Publish(ctx context.Context) error {
	title, image := s.NewForm()
	if _, err := s.photos.Publish(ctx, title, image); err != nil {
		return s.check(err)
	}
	s.mu.Lock()
	s.newTitle = ""
	s.newImage = model.Image{}
	s.mu.Unlock()
	return nil
}

// BeginEdit は読み込み済みの写真の編集を開始する。
func (s *ProfileScreen) BeginEdit(photoID string) error {
	p, ok := s.photos.Photo(photoID)
	if !ok {
		return model.NewPhotoNotFoundError(photoID)
	}
	s.editor.BeginEdit(p)
	return nil
}

// SetEditTitle は編集フォームのタイトルを設定する。
func (s *ProfileScreen) SetEditTitle(title string) bool {
	return s.editor.SetTitle(title)
}

// CancelEdit は編集を終了する。
func (s *ProfileScreen) CancelEdit() {
	s.editor.Cancel()
}

// SubmitEdit は編集フォームの内容で写真を更新する。
func (s *ProfileScreen) SubmitEdit(ctx context.Context) error {
	return s.check(s.editor.Submit(ctx))
}

// Delete は写真を削除する。
func (s *ProfileScreen) Delete(ctx context.Context, photoID string) error {
	return s.check(s.photos.Delete(ctx, photoID))
}

// Like は閲覧者のいいねを反転する。
func (s *ProfileScreen) Like(ctx context.Context, photoID string) error {
	return s.check(s.photos.ToggleLike(ctx, photoID, s.auth.UserID()))
}

// View は表示用のスナップショットを返す。
func (s *ProfileScreen) View() ProfileView {
	viewer := s.auth.UserID()
	v := ProfileView{
		IsOwner:    s.IsOwner(),
		Photos:     toPhotoViews(s.photos.Photos(), viewer, s.assets),
		Form:       s.editor.Form(),
		Publishing: s.photos.Pending(photo.OpPublish, ""),
	}

	st := s.profiles.State()
	v.Loading = st.Loading() || s.photos.LoadState().Loading()
	if st.Status == lifecycle.Failed {
		v.Error = st.Error
	}
	if p, ok := s.profiles.Profile(); ok {
		v.Profile = p
		v.AvatarURL = s.assets.Avatar(p.AvatarRef)
	}
	if t, ok := s.editor.Target(); ok {
		v.EditTarget = t
	}
	if msg, ok := s.photos.Message(); ok {
		v.Message = &msg
	}
	return v
}

// check は認証エラーであれば強制ログアウトし、古い結果の破棄は成功として扱う。
func (s *ProfileScreen) check(err error) error {
	return checkErr(s.auth, err)
}

func checkErr(a *auth.Store, err error) error {
	if err == nil || errors.Is(err, model.ErrSuperseded) {
		return nil
	}
	a.HandleUnauthorized(err)
	return err
}
