// Package content turns generated text into publishable HTML. Every function
// is pure and degrades to a usable value instead of failing.
package content

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// PlaceholderTitle is returned when no title can be derived.
	PlaceholderTitle = "Untitled AI Draft"

	DefaultExcerptLength = 150

	titleWordCount = 8
	titleMaxLength = 60
	ellipsis       = "..."
)

var (
	headingLine   = regexp.MustCompile(`^#+\s*(.+)$`)
	terminalPunct = regexp.MustCompile(`[.!?]$`)

	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	h1Marker         = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)
	h2Marker         = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t]*$`)
	h3Marker         = regexp.MustCompile(`(?m)^###[ \t]+(.+?)[ \t]*$`)
	boldMarker       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicMarker     = regexp.MustCompile(`\*(.+?)\*`)

	headingBlock = regexp.MustCompile(`^<h[1-6]>.*</h[1-6]>$`)
	blockTag     = regexp.MustCompile(`^<(h[1-6]|p|ul|ol|li|blockquote|pre|div|table|figure|hr)[\s>/]`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ExtractTitle derives a post title from generated text. It never returns an
// empty string.
func ExtractTitle(text string) string {
	trimmed := strings.TrimSpace(normalizeNewlines(text))
	firstLine := strings.TrimSpace(strings.SplitN(trimmed, "\n", 2)[0])

	if m := headingLine.FindStringSubmatch(firstLine); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}

	if n := utf8.RuneCountInString(firstLine); n > 10 && n < 100 && !terminalPunct.MatchString(firstLine) {
		return firstLine
	}

	words := strings.Fields(StripMarkup(trimmed))
	if len(words) > titleWordCount {
		words = words[:titleWordCount]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > titleMaxLength {
		title = string([]rune(title)[:titleMaxLength-len(ellipsis)]) + ellipsis
	}
	if title == "" {
		return PlaceholderTitle
	}
	return title
}

// FormatForPublishing converts lightweight markdown to the HTML blocks the
// publishing backend stores. Input that is already HTML and carries no
// markdown markers comes back unchanged.
func FormatForPublishing(text string) string {
	text = normalizeNewlines(text)
	text = excessBlankLines.ReplaceAllString(text, "\n\n")

	text = h1Marker.ReplaceAllString(text, "<h1>$1</h1>")
	text = h2Marker.ReplaceAllString(text, "<h2>$1</h2>")
	text = h3Marker.ReplaceAllString(text, "<h3>$1</h3>")

	text = boldMarker.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicMarker.ReplaceAllString(text, "<em>$1</em>")

	var blocks []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		blocks = append(blocks, formatChunk(chunk))
	}
	return strings.Join(blocks, "\n\n")
}

// formatChunk wraps runs of plain lines in <p>, leaving headings and
// already-formatted blocks alone.
func formatChunk(chunk string) string {
	lines := strings.Split(chunk, "\n")
	var out, para []string

	flush := func() {
		if len(para) == 0 {
			return
		}
		out = append(out, "<p>"+strings.Join(para, "<br />\n")+"</p>")
		para = nil
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case headingBlock.MatchString(line):
			flush()
			out = append(out, line)
		case blockTag.MatchString(line):
			flush()
			tag := blockTag.FindStringSubmatch(line)[1]
			closing := "</" + tag + ">"
			block := []string{line}
			// A block runs to the line carrying its closing tag.
			for tag != "hr" && !strings.Contains(line, closing) && i+1 < len(lines) {
				i++
				line = strings.TrimSpace(lines[i])
				block = append(block, line)
			}
			out = append(out, strings.Join(block, "\n"))
		case line == "":
		default:
			para = append(para, line)
		}
	}
	flush()
	return strings.Join(out, "\n")
}

// GenerateExcerpt returns plain text of at most maxLength runes, cut back to a
// word boundary and suffixed with "..." when truncated. maxLength <= 0 uses
// DefaultExcerptLength.
func GenerateExcerpt(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}
	plain := strings.TrimSpace(whitespaceRun.ReplaceAllString(StripMarkup(text), " "))

	runes := []rune(plain)
	if len(runes) <= maxLength {
		return plain
	}

	cut := string(runes[:maxLength])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + ellipsis
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
