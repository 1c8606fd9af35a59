// Package security はクライアントのセキュリティ機能を提供する。
//
// TextSanitizer はバックエンドから受け取ったタイトル・名前・自己紹介文や、
// ユーザーが入力したタイトルからマークアップを取り除く。
// bluemondayのStrictPolicyで全タグを除去し、プレーンテキストとして扱う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。
	// 出力はHTMLエスケープされていないため、HTMLとして描画する側でエスケープすること。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はマークアップを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはエンティティをエスケープして返すため、テキストに戻す
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
