package content

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	anyTag          = regexp.MustCompile(`<[^>]*>`)
	markdownHeading = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	markdownInline  = regexp.MustCompile("\\*+|`+")
)

// StripMarkup removes HTML tags, decodes entities and drops markdown heading
// and emphasis markers, keeping line structure.
func StripMarkup(text string) string {
	plain := stripTags(text)
	plain = markdownHeading.ReplaceAllString(plain, "")
	return markdownInline.ReplaceAllString(plain, "")
}

func stripTags(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return anyTag.ReplaceAllString(text, "")
	}
	return doc.Text()
}
