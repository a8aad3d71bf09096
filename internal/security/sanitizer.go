package security

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// httpsOnly はimgのsrc属性に許可するURLパターン。
var httpsOnly = regexp.MustCompile(`^https://`)

// Sanitizer は利用者に表示する文字列を無害化する。
// ゲーム説明文は限定したHTMLを許可し、レビュー本文はプレーンテキストに落とす。
type Sanitizer struct {
	description *bluemonday.Policy
	plain       *bluemonday.Policy
}

// NewSanitizer はSanitizerを生成する。
//
// 説明文ポリシー:
//   - 許可タグ: p, br, ul, ol, li, strong, em, h2, h3, a, img
//   - aはhttp/httpsの絶対URLのみ。rel="nofollow noopener noreferrer"とtarget="_blank"を付与
//   - imgのsrcはhttpsのみ
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "h2", "h3")

	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(false)
	p.AllowURLSchemes("http", "https")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("src").Matching(httpsOnly).OnElements("img")

	return &Sanitizer{
		description: p,
		plain:       bluemonday.StrictPolicy(),
	}
}

// Description はゲーム説明文を無害化する。
func (s *Sanitizer) Description(rawHTML string) string {
	return strings.TrimSpace(s.description.Sanitize(rawHTML))
}

// PlainText は全てのタグを除去したテキストを返す。レビュー本文に使う。
func (s *Sanitizer) PlainText(raw string) string {
	return strings.TrimSpace(s.plain.Sanitize(raw))
}
