// Package model はドメインモデルを定義する。
package model

import "time"

// Photo は公開された写真を表す。
// タイトルと画像参照は更新可能、likesはいいねのトグルで変化する。
type Photo struct {
	ID        string
	Title     string
	ImageRef  string
	OwnerID   string
	OwnerName string
	Likes     map[string]struct{}
	CreatedAt time.Time
}

// LikedBy はユーザーがいいね済みかどうかを返す。
func (p Photo) LikedBy(userID string) bool {
	_, ok := p.Likes[userID]
	return ok
}

// LikeCount はいいね数を返す。
func (p Photo) LikeCount() int {
	return len(p.Likes)
}

// Clone はlikesを含めたディープコピーを返す。
// ストアの外に渡すスナップショットは必ずClone経由にする。
func (p Photo) Clone() Photo {
	likes := make(map[string]struct{}, len(p.Likes))
	for id := range p.Likes {
		likes[id] = struct{}{}
	}
	p.Likes = likes
	return p
}

// NewLikes はユーザーIDのリストからlikes集合を生成する。重複は除去される。
func NewLikes(userIDs ...string) map[string]struct{} {
	likes := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		likes[id] = struct{}{}
	}
	return likes
}

// Image は公開する画像ファイルを表す。
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Empty は画像が未選択かどうかを返す。
func (i Image) Empty() bool {
	return len(i.Data) == 0
}
