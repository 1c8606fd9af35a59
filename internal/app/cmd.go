package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandHelp は使い方を表示する。
	CommandHelp Command = "help"
	// CommandLogin はログインしてトークンを保存する。
	CommandLogin Command = "login"
	// CommandRegister はユーザーを登録してログインする。
	CommandRegister Command = "register"
	// CommandLogout は保存済みトークンを削除する。
	CommandLogout Command = "logout"
	// CommandWhoami はログイン中のユーザーを表示する。
	CommandWhoami Command = "whoami"
	// CommandProfile はユーザーのプロフィールと写真一覧を表示する。
	CommandProfile Command = "profile"
	// CommandSearch はタイトルで写真を検索する。
	CommandSearch Command = "search"
	// CommandPhoto は写真1件を表示する。
	CommandPhoto Command = "photo"
	// CommandPublish は写真を公開する。
	CommandPublish Command = "publish"
	// CommandUpdate は写真のタイトルを更新する。
	CommandUpdate Command = "update"
	// CommandDelete は写真を削除する。
	CommandDelete Command = "delete"
	// CommandLike はいいねを反転する。
	CommandLike Command = "like"
	// CommandHealthcheck はバックエンドに到達できるかを確認する。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	"help":        CommandHelp,
	"login":       CommandLogin,
	"register":    CommandRegister,
	"logout":      CommandLogout,
	"whoami":      CommandWhoami,
	"profile":     CommandProfile,
	"search":      CommandSearch,
	"photo":       CommandPhoto,
	"publish":     CommandPublish,
	"update":      CommandUpdate,
	"delete":      CommandDelete,
	"like":        CommandLike,
	"healthcheck": CommandHealthcheck,
}

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandHelp, nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return CommandHelp, nil
	}
	return cmd, args[1:]
}

// needsSession はコマンド実行前に保存済みセッションを復元するかを返す。
func (c Command) needsSession() bool {
	switch c {
	case CommandHelp, CommandLogin, CommandRegister, CommandLogout, CommandHealthcheck:
		return false
	default:
		return true
	}
}

const usage = `使い方: photoshare <command> [args]

  login <email> <password>
  register <name> <email> <password> <confirm-password>
  logout
  whoami
  profile [user-id]
  search <term | url>
  photo <photo-id>
  publish <title> <image-file>
  update <photo-id> <title>
  delete <photo-id>
  like <photo-id>
  healthcheck
`
