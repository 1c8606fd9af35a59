package api

import (
	"time"

	"github.com/hitoshi/photoshare/internal/model"
)

// photoDTO はバックエンドが返す写真のJSON形式。
type photoDTO struct {
	ID        string    `json:"_id"`
	Image     string    `json:"image"`
	Title     string    `json:"title"`
	Likes     []string  `json:"likes"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

// userDTO はバックエンドが返すユーザーのJSON形式。
type userDTO struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
	Bio          string `json:"bio"`
}

// authDTO はログイン・登録APIのレスポンス形式。
type authDTO struct {
	ID           string `json:"_id"`
	ProfileImage string `json:"profileImage"`
	Token        string `json:"token"`
}

// likeDTO はいいねAPIのレスポンス形式。
// 写真全体を返すバックエンドと、対象IDだけを返すバックエンドの両方を受け付ける。
type likeDTO struct {
	photoDTO
	PhotoID string `json:"photoId"`
}

func (c *Client) toPhoto(d photoDTO) model.Photo {
	return model.Photo{
		ID:        d.ID,
		Title:     c.sanitizer.Sanitize(d.Title),
		ImageRef:  d.Image,
		OwnerID:   d.UserID,
		OwnerName: c.sanitizer.Sanitize(d.UserName),
		Likes:     model.NewLikes(d.Likes...),
		CreatedAt: d.CreatedAt,
	}
}

func (c *Client) toPhotos(ds []photoDTO) []model.Photo {
	photos := make([]model.Photo, 0, len(ds))
	for _, d := range ds {
		photos = append(photos, c.toPhoto(d))
	}
	return photos
}

func (c *Client) toProfile(d userDTO) *model.UserProfile {
	return &model.UserProfile{
		ID:        d.ID,
		Name:      c.sanitizer.Sanitize(d.Name),
		Bio:       c.sanitizer.Sanitize(d.Bio),
		AvatarRef: d.ProfileImage,
	}
}

func (c *Client) toSummary(d userDTO) *model.UserSummary {
	return &model.UserSummary{
		ID:        d.ID,
		Name:      c.sanitizer.Sanitize(d.Name),
		AvatarRef: d.ProfileImage,
	}
}
