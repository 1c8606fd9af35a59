package screen

import (
	"context"

	"github.com/hitoshi/photoshare/internal/asset"
	"github.com/hitoshi/photoshare/internal/auth"
	"github.com/hitoshi/photoshare/internal/photo"
)

// PhotoScreen は写真1件の詳細画面。
type PhotoScreen struct {
	auth   *auth.Store
	photos *photo.Store
	assets *asset.Resolver
}

// NewPhotoScreen はPhotoScreenを生成する。
func NewPhotoScreen(a *auth.Store, photos *photo.Store, assets *asset.Resolver) *PhotoScreen {
	return &PhotoScreen{auth: a, photos: photos, assets: assets}
}

// Enter は写真を読み込む。
func (s *PhotoScreen) Enter(ctx context.Context, photoID string) error {
	return checkErr(s.auth, s.photos.LoadOne(ctx, photoID))
}

// View は読み込み済みの写真を返す。
func (s *PhotoScreen) View(photoID string) (PhotoView, bool) {
	p, ok := s.photos.Photo(photoID)
	if !ok {
		return PhotoView{}, false
	}
	return toPhotoView(p, s.auth.UserID(), s.assets), true
}

// Like は閲覧者のいいねを反転する。
func (s *PhotoScreen) Like(ctx context.Context, photoID string) error {
	return checkErr(s.auth, s.photos.ToggleLike(ctx, photoID, s.auth.UserID()))
}
