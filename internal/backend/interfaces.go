// Package backend はストアが利用する外部協調者（REST API、認証情報ストア）のインターフェースを定義する。
package backend

import (
	"context"

	"github.com/hitoshi/photoshare/internal/model"
)

// AuthAPI は認証APIのインターフェース。
type AuthAPI interface {
	// Login はメールアドレスとパスワードで認証し、ユーザーとトークンを返す。
	// 認証情報が不正な場合はKindAuthのエラーを返す。
	Login(ctx context.Context, email, password string) (*model.AuthResult, error)

	// Register は新しいユーザーを作成し、ユーザーとトークンを返す。
	Register(ctx context.Context, reg model.Registration) (*model.AuthResult, error)

	// Current は保存済みトークンに対応するユーザーを返す。
	Current(ctx context.Context) (*model.UserSummary, error)
}

// ProfileAPI はプロフィールAPIのインターフェース。
type ProfileAPI interface {
	// GetProfile は指定IDのプロフィールを返す。見つからない場合はKindNotFoundのエラーを返す。
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// PhotoAPI は写真APIのインターフェース。
type PhotoAPI interface {
	// ListByOwner は指定ユーザーの写真一覧を返す。
	ListByOwner(ctx context.Context, userID string) ([]model.Photo, error)

	// ListBySearch はタイトル検索の結果を返す。
	ListBySearch(ctx context.Context, term string) ([]model.Photo, error)

	// GetOne は指定IDの写真を返す。
	GetOne(ctx context.Context, photoID string) (*model.Photo, error)

	// Create はmultipartで写真を公開し、作成された写真を返す。
	Create(ctx context.Context, title string, image model.Image) (*model.Photo, error)

	// Update は写真のタイトルを更新し、更新後の写真を返す。
	Update(ctx context.Context, photoID, title string) (*model.Photo, error)

	// Delete は写真を削除する。
	Delete(ctx context.Context, photoID string) error

	// Like はlikeがtrueならいいね、falseならいいね取り消しを行う。
	// 方向を明示するため、同じ呼び出しを繰り返しても結果は変わらない。
	Like(ctx context.Context, photoID string, like bool) (*model.Photo, error)
}

// CredentialStore はセッショントークンの永続化インターフェース。
// AuthSessionストアだけが利用する。
type CredentialStore interface {
	// PersistToken はトークンを保存する。
	PersistToken(token string) error

	// ClearToken は保存済みトークンを削除する。
	ClearToken() error

	// ReadToken は保存済みトークンを返す。未保存の場合は空文字列とnilを返す。
	// 保存データが壊れている場合はエラーを返す。
	ReadToken() (string, error)
}
