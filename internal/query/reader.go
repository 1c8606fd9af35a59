// Package query は現在のロケーションのクエリ文字列から検索語を導出する。
package query

import (
	"fmt"
	"net/url"
	"sync"
)

// DefaultParam は検索語のクエリパラメータ名。
const DefaultParam = "q"

// SearchTerm はロケーションのqパラメータを返す。locがnilの場合は空文字列を返す。
func SearchTerm(loc *url.URL) string {
	return Param(loc, DefaultParam)
}

// Param はロケーションの指定パラメータを返す。
func Param(loc *url.URL, name string) string {
	if loc == nil {
		return ""
	}
	return loc.Query().Get(name)
}

// Reader は現在のロケーションを保持し、検索語の変化を購読者に通知する。
// 検索語はロケーションから毎回導出し、ロケーション以外の状態は持たない。
type Reader struct {
	param string

	mu   sync.Mutex
	loc  *url.URL
	subs map[int]func(term string)
	next int
}

// NewReader はReaderを生成する。paramが空の場合はDefaultParamを使う。
func NewReader(param string) *Reader {
	if param == "" {
		param = DefaultParam
	}
	return &Reader{param: param, subs: make(map[int]func(string))}
}

// Navigate はロケーションを変更する。
// 最初の遷移と、導出した検索語が変わった遷移で購読者に通知する。
func (r *Reader) Navigate(rawURL string) error {
	loc, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("ロケーションのパースに失敗しました: %w", err)
	}

	r.mu.Lock()
	first := r.loc == nil
	prev := Param(r.loc, r.param)
	r.loc = loc
	term := Param(loc, r.param)
	var subs []func(string)
	if first || term != prev {
		for _, fn := range r.subs {
			subs = append(subs, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(term)
	}
	return nil
}

// Term は現在のロケーションから導出した検索語を返す。
func (r *Reader) Term() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Param(r.loc, r.param)
}

// Location は現在のロケーションのコピーを返す。未遷移の場合はnilを返す。
func (r *Reader) Location() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loc == nil {
		return nil
	}
	loc := *r.loc
	return &loc
}

// Subscribe は検索語の変化の購読を登録し、解除する関数を返す。
func (r *Reader) Subscribe(fn func(term string)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}
