package photo

import "github.com/hitoshi/photoshare/internal/model"

// ScopeKind は読み込み済みコレクションの種類を表す。
type ScopeKind int

const (
	// ScopeNone は未読み込みの状態。
	ScopeNone ScopeKind = iota
	// ScopeOwner はユーザーの写真一覧。
	ScopeOwner
	// ScopeSearch は検索結果。
	ScopeSearch
	// ScopeSingle は写真1件の詳細。
	ScopeSingle
)

// String はスコープ種別名を返す。
func (k ScopeKind) String() string {
	switch k {
	case ScopeNone:
		return "none"
	case ScopeOwner:
		return "owner"
	case ScopeSearch:
		return "search"
	case ScopeSingle:
		return "single"
	default:
		return "unknown"
	}
}

// Scope はコレクションを識別するコンテキスト。KeyはユーザーID、検索語、写真IDのいずれか。
type Scope struct {
	Kind ScopeKind
	Key  string
}

// String はログ用の表記を返す。
func (s Scope) String() string {
	if s.Kind == ScopeNone {
		return "none"
	}
	return s.Kind.String() + ":" + s.Key
}

// Op は写真の変更操作を表す。
type Op string

// 変更操作
const (
	OpPublish Op = "publish"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpLike    Op = "like"
)

// EventKind はストアが通知するイベントの種類。
type EventKind int

const (
	// EventPublished は写真の公開が成功したことを示す。
	EventPublished EventKind = iota + 1
	// EventUpdated は写真の更新が成功したことを示す。
	EventUpdated
	// EventDeleted は写真がコレクションから削除されたことを示す。
	EventDeleted
	// EventLiked はいいねの状態が変わったことを示す。
	EventLiked
	// EventReplaced は読み込みでコレクション全体が置き換わったことを示す。
	EventReplaced
)

// Event は変更操作の結果の通知。
// Photoは変更後のスナップショットで、コレクションに存在しない場合はゼロ値になる。
// PhotoIDsはEventReplacedの場合だけ、置き換え後のコレクションのIDを順序どおりに持つ。
type Event struct {
	Kind     EventKind
	PhotoID  string
	Photo    model.Photo
	PhotoIDs []string
}
