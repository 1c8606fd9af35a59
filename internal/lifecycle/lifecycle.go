// Package lifecycle は非同期リクエストの状態遷移（idle → loading → succeeded/failed）を提供する。
//
// Trackerはゴルーチンセーフではない。所有するストアのロック下で操作すること。
package lifecycle

// Status はリクエストの状態を表す。
type Status int

const (
	// Idle はリクエスト未実行の状態。
	Idle Status = iota
	// Loading はリクエスト処理中の状態。
	Loading
	// Succeeded はリクエスト成功の状態。
	Succeeded
	// Failed はリクエスト失敗の状態。
	Failed
)

// String は状態名を返す。
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State はビューに公開するリクエスト状態のスナップショット。
// ErrorはStatusがFailedの場合のみ設定される。
type State struct {
	Status Status
	Error  string
}

// Loading は処理中かどうかを返す。
func (s State) Loading() bool {
	return s.Status == Loading
}

// Ticket はBeginで発行されるリクエストの識別子。
// より新しいBeginが呼ばれると古いTicketは無効になる。
type Ticket uint64

// Tracker はリクエスト状態と最新Ticketを保持する。
type Tracker struct {
	state State
	seq   Ticket
}

// Begin はLoadingへ遷移し、前回のエラーをクリアして新しいTicketを発行する。
// それ以前に発行されたTicketはすべて無効になる。
func (t *Tracker) Begin() Ticket {
	t.seq++
	t.state = State{Status: Loading}
	return t.seq
}

// Current はTicketが最新かどうかを返す。
func (t *Tracker) Current(tk Ticket) bool {
	return tk == t.seq
}

// Succeed はLoadingからSucceededへ遷移する。
// Ticketが最新でない、またはLoadingでない場合は何もせずfalseを返す。
func (t *Tracker) Succeed(tk Ticket) bool {
	if !t.Current(tk) || t.state.Status != Loading {
		return false
	}
	t.state = State{Status: Succeeded}
	return true
}

// Fail はLoadingからFailedへ遷移し、エラーメッセージを保持する。
// Ticketが最新でない、またはLoadingでない場合は何もせずfalseを返す。
func (t *Tracker) Fail(tk Ticket, message string) bool {
	if !t.Current(tk) || t.state.Status != Loading {
		return false
	}
	t.state = State{Status: Failed, Error: message}
	return true
}

// Reset はIdleへ戻し、処理中のTicketをすべて無効にする。
func (t *Tracker) Reset() {
	t.seq++
	t.state = State{}
}

// State は現在の状態を返す。
func (t *Tracker) State() State {
	return t.state
}
