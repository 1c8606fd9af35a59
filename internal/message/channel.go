// Package message はドメインごとに1件だけ保持する一時的なステータスメッセージを提供する。
//
// メッセージは生成した操作ではなく、タイマーによる自動クリアで消える。
// 操作の完了とメッセージの表示期間を切り離すための仕組み。
package message

import (
	"sync"
	"time"
)

// DefaultClearDelay は自動クリアまでの既定の遅延。
const DefaultClearDelay = 2 * time.Second

// Kind はメッセージの種別を表す。
type Kind string

const (
	// Info は情報メッセージ。
	Info Kind = "info"
	// Success は成功メッセージ。
	Success Kind = "success"
	// Error はエラーメッセージ。
	Error Kind = "error"
)

// Message はビューに表示するステータスメッセージ。
type Message struct {
	Text string
	Kind Kind
}

// Recorder はメッセージ表示を記録するインターフェース。
type Recorder interface {
	RecordMessage(domain string, kind string)
}

// Channel は最大1件のメッセージと、最大1つの保留中タイマーを保持する。
// 新しいSet、Clear、ScheduleAutoClearは保留中のタイマーを必ずキャンセルする。
type Channel struct {
	mu       sync.Mutex
	domain   string
	clock    Clock
	recorder Recorder
	current  *Message
	timer    Timer
	gen      uint64 // キャンセル済みタイマーの発火を無視するための世代番号
}

// NewChannel はChannelを生成する。clockがnilの場合はSystemClockを使う。
func NewChannel(domain string, clock Clock) *Channel {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Channel{domain: domain, clock: clock}
}

// WithRecorder はメッセージ表示の記録先を設定する。
func (c *Channel) WithRecorder(r Recorder) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
	return c
}

// Set は現在のメッセージを無条件に置き換える。
func (c *Channel) Set(text string, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.current = &Message{Text: text, Kind: kind}
	if c.recorder != nil {
		c.recorder.RecordMessage(c.domain, string(kind))
	}
}

// Clear はメッセージを空にする。
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.current = nil
}

// ScheduleAutoClear はdelay経過後にメッセージをクリアするタイマーを開始する。
// 既存のタイマーはキャンセルされ、最後に予約したタイマーだけが発火する。
func (c *Channel) ScheduleAutoClear(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	gen := c.gen
	c.timer = c.clock.AfterFunc(delay, func() {
		c.expire(gen)
	})
}

// Current は現在のメッセージを返す。メッセージがない場合はfalseを返す。
func (c *Channel) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Message{}, false
	}
	return *c.current, true
}

// Pending は自動クリアのタイマーが保留中かどうかを返す。
func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Stopが発火と競合した場合でも、世代が変わっていればクリアしない
	if gen != c.gen {
		return
	}
	c.timer = nil
	c.current = nil
}

func (c *Channel) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}
