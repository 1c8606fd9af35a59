// Package screen はストアを組み合わせて画面単位の操作と表示用スナップショットを提供する。
// 描画は行わず、ビューが参照する値と、ビューから呼び出す操作だけを公開する。
package screen

import (
	"github.com/hitoshi/photoshare/internal/asset"
	"github.com/hitoshi/photoshare/internal/model"
)

// PhotoView は表示用の写真。
type PhotoView struct {
	ID        string
	Title     string
	ImageURL  string
	OwnerID   string
	OwnerName string
	Likes     int
	Liked     bool // 閲覧者がいいね済みか
}

func toPhotoViews(photos []model.Photo, viewerID string, assets *asset.Resolver) []PhotoView {
	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, toPhotoView(p, viewerID, assets))
	}
	return views
}

func toPhotoView(p model.Photo, viewerID string, assets *asset.Resolver) PhotoView {
	return PhotoView{
		ID:        p.ID,
		Title:     p.Title,
		ImageURL:  assets.Photo(p.ImageRef),
		OwnerID:   p.OwnerID,
		OwnerName: p.OwnerName,
		Likes:     p.LikeCount(),
		Liked:     viewerID != "" && p.LikedBy(viewerID),
	}
}
