package model

import (
	"regexp"
	"strings"
)

var (
	slugNonWord   = regexp.MustCompile(`[^\w\s-]`)
	slugSeparator = regexp.MustCompile(`[\s_-]+`)
)

// Slugify は名前からURLに使えるスラッグを生成する。
// 小文字化し、単語構成文字・空白・ハイフン以外を除去した上で、
// 空白・アンダースコア・ハイフンの連続を1つのハイフンにまとめ、前後のハイフンを取り除く。
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonWord.ReplaceAllString(s, "")
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
