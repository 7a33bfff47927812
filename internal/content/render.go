package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

// Renderer selects how generated markdown becomes HTML.
type Renderer string

const (
	// RendererBasic handles headings, emphasis and paragraphs only.
	RendererBasic Renderer = "basic"
	// RendererCommonMark renders the full CommonMark syntax with goldmark.
	RendererCommonMark Renderer = "commonmark"
)

// ParseRenderer maps a config value to a Renderer, defaulting to basic.
func ParseRenderer(s string) (Renderer, error) {
	switch Renderer(strings.ToLower(strings.TrimSpace(s))) {
	case "", RendererBasic:
		return RendererBasic, nil
	case RendererCommonMark:
		return RendererCommonMark, nil
	default:
		return "", fmt.Errorf("content: unknown renderer %q", s)
	}
}

// Render converts text with r. A CommonMark failure falls back to the basic
// formatter so callers always get HTML.
func (r Renderer) Render(text string) string {
	if r == RendererCommonMark {
		if html, err := RenderCommonMark(text); err == nil {
			return html
		}
	}
	return FormatForPublishing(text)
}

// RenderCommonMark converts markdown to HTML with goldmark's default
// extensions. Raw HTML in the input is omitted.
func RenderCommonMark(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(normalizeNewlines(text)), &buf); err != nil {
		return "", fmt.Errorf("content: render commonmark: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
