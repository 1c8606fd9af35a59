// Package asset はバックエンドが返す画像参照を表示用URLに変換する。
package asset

import (
	"net/url"
	"strings"
)

// Resolver はアップロード済みファイルのベースURLを保持する。
type Resolver struct {
	base string
}

// NewResolver はResolverを生成する。末尾のスラッシュは除去される。
func NewResolver(base string) *Resolver {
	return &Resolver{base: strings.TrimRight(base, "/")}
}

// Photo は写真画像のURLを返す。参照が空の場合は空文字列を返す。
func (r *Resolver) Photo(ref string) string {
	return r.join("photos", ref)
}

// Avatar はプロフィール画像のURLを返す。参照が空の場合は空文字列を返す。
func (r *Resolver) Avatar(ref string) string {
	return r.join("users", ref)
}

func (r *Resolver) join(dir, ref string) string {
	if ref == "" {
		return ""
	}
	return r.base + "/" + dir + "/" + url.PathEscape(ref)
}
