package message

import (
	"sort"
	"sync"
	"time"
)

// Timer はキャンセル可能な一回限りのタイマー。
type Timer interface {
	// Stop はタイマーを停止する。発火前に停止できた場合はtrueを返す。
	Stop() bool
}

// Clock はタイマーの生成元。テストでは手動で進めるClockに差し替える。
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock はtime.AfterFuncを使う実時間のClock。
type SystemClock struct{}

// AfterFunc はd経過後にfを別ゴルーチンで実行するタイマーを返す。
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock はAdvanceで時間を進めるまでタイマーが発火しないClock。
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock *ManualClock
	at    time.Duration
	f     func()
	done  bool
}

// NewManualClock はManualClockを生成する。
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc は現在時刻+dで発火するタイマーを登録する。
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance は時間をd進め、期限に達したタイマーを期限順に同期実行する。
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.done:
		case t.at <= c.now:
			t.done = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Pending は未発火かつ未停止のタイマー数を返す。
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
