// Package model はドメインモデルを定義する。
package model

// UserSummary は認証済みユーザーの概要を表す。
type UserSummary struct {
	ID        string
	Name      string
	AvatarRef string
}

// UserProfile は閲覧中のプロフィールを表す。
// 取得のたびに丸ごと置き換え、写真操作で部分更新はしない。
type UserProfile struct {
	ID        string
	Name      string
	Bio       string
	AvatarRef string
}

// Credentials はログイン入力を表す。
type Credentials struct {
	Email    string
	Password string
}

// Registration はユーザー登録入力を表す。
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult はログイン・登録APIの応答を表す。
type AuthResult struct {
	User  UserSummary
	Token string
}

// Session は現在の認証状態を表す。
// 起動時は空で、ログイン成功で設定され、ログアウトでクリアされる。
type Session struct {
	UserID  string
	Profile *UserSummary
}

// Authenticated はログイン済みかどうかを返す。
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
