package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagPattern    = regexp.MustCompile(`(?i)</?(?:a|b|i|u|p|br|hr|em|strong|span|div|font|li|ul|ol|h[1-6]|img|blockquote|script|style)(?:\s[^<>]*)?/?>`)
	entityPattern = regexp.MustCompile(`&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)
)

// Text returns the visible text of an HTML fragment. Text without a recognised HTML tag is
// returned as is apart from entity decoding, so comparisons like "small<medium" survive.
// For markup, line breaks and block boundaries become single spaces.
func Text(fragment string) string {
	if !tagPattern.MatchString(fragment) {
		if entityPattern.MatchString(fragment) {
			return html.UnescapeString(fragment)
		}
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
