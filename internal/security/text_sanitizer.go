// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は外部APIのエラーメッセージからHTMLを取り除き、
// クライアントへ返すエラー原因をプレーンテキストにする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はHTMLを含みうる入力をプレーンテキストに変換するインターフェース。
type TextSanitizer interface {
	// PlainText はすべてのタグを除去し、エンティティを復元したテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	PlainText(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを一切許可しないポリシーでTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// PlainText はHTMLタグを除去したプレーンテキストを返す。
// bluemondayはテキストをエスケープして返すため、最後にアンエスケープする。
func (s *textSanitizer) PlainText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}
