// Package extract reduces an article page to the plain text of its paragraphs
// and headings
package extract

import (
	"regexp"
	"strings"
)

// The body of each tag is captured verbatim: markup nested inside a paragraph
// stays in the output and entities are not decoded.
var tagPattern = regexp.MustCompile(`<p[^>]*>(.*?)</p>|<h1[^>]*>(.*?)</h1>|<h2[^>]*>(.*?)</h2>|<h3[^>]*>(.*?)</h3>`)

// Text returns the whitespace-normalized bodies of every <p>, <h1>, <h2> and
// <h3> element in document order.
func Text(html string) string {
	var words []string
	for _, match := range tagPattern.FindAllStringSubmatch(html, -1) {
		for _, body := range match[1:] {
			words = append(words, strings.Fields(body)...)
		}
	}
	return strings.Join(words, " ")
}
