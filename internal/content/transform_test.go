package content

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "markdown heading", text: "# My Title\nBody text here.", want: "My Title"},
		{name: "deeper heading after blank lines", text: "\n\n## Sub heading  \ntext", want: "Sub heading"},
		{name: "title-like first line", text: "A Guide To Caring For Cats\n\nCats are great.", want: "A Guide To Caring For Cats"},
		{name: "sentence falls back to first words", text: "This is a very long opening sentence that definitely ends with a period.", want: "This is a very long opening sentence that"},
		{name: "short first line uses words", text: "Short.\nmore", want: "Short. more"},
		{name: "markup stripped from words", text: "**Bold** claim here.", want: "Bold claim here."},
		{name: "empty", text: "", want: PlaceholderTitle},
		{name: "blank", text: "  \n\t\n ", want: PlaceholderTitle},
		{name: "only markers", text: "**", want: PlaceholderTitle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractTitle(tc.text))
		})
	}
}

func TestExtractTitle_TruncatesLongWordTitles(t *testing.T) {
	text := "Supercalifragilistic expialidocious antidisestablishmentarianism floccinaucinihilipilification pneumonoultramicroscopic words here now."
	title := ExtractTitle(text)
	require.Equal(t, 60, utf8.RuneCountInString(title))
	require.True(t, strings.HasSuffix(title, "..."))
	require.True(t, strings.HasPrefix(title, "Supercalifragilistic expialidocious"))
}

func TestExtractTitle_NeverEmpty(t *testing.T) {
	inputs := []string{"", " ", "#", "...", "<p></p>", "\n\n\n", "a", "!", "``"}
	for _, in := range inputs {
		require.NotEmpty(t, ExtractTitle(in), "input=%q", in)
	}
}

func TestFormatForPublishing_HeadingThenParagraph(t *testing.T) {
	out := FormatForPublishing("# My Title\nBody text here.")
	require.Equal(t, "<h1>My Title</h1>\n<p>Body text here.</p>", out)
}

func TestFormatForPublishing_Emphasis(t *testing.T) {
	out := FormatForPublishing("This is **bold** and *italic*.")
	require.Equal(t, "<p>This is <strong>bold</strong> and <em>italic</em>.</p>", out)
}

func TestFormatForPublishing_ParagraphsAndLineBreaks(t *testing.T) {
	out := FormatForPublishing("Line one\nLine two\n\n\n\nNext para")
	require.Equal(t, "<p>Line one<br />\nLine two</p>\n\n<p>Next para</p>", out)
}

func TestFormatForPublishing_HeadingLevels(t *testing.T) {
	out := FormatForPublishing("## Section\n\n### Sub\n\n#### Too deep")
	require.Equal(t, "<h2>Section</h2>\n\n<h3>Sub</h3>\n\n<p>#### Too deep</p>", out)
}

func TestFormatForPublishing_WindowsNewlines(t *testing.T) {
	out := FormatForPublishing("# Title\r\n\r\nBody")
	require.Equal(t, "<h1>Title</h1>\n\n<p>Body</p>", out)
}

func TestFormatForPublishing_TextAfterBlockIsWrapped(t *testing.T) {
	cases := map[string]string{
		"<p>already</p>\nloose text":             "<p>already</p>\n<p>loose text</p>",
		"<div>x</div>\nplain line":               "<div>x</div>\n<p>plain line</p>",
		"<ul>\n<li>a</li>\n</ul>\nafter the list": "<ul>\n<li>a</li>\n</ul>\n<p>after the list</p>",
		"<hr />\nbelow":                          "<hr />\n<p>below</p>",
	}
	for in, want := range cases {
		out := FormatForPublishing(in)
		require.Equal(t, want, out, "input=%q", in)
		require.Equal(t, out, FormatForPublishing(out), "input=%q", in)
	}
}

func TestFormatForPublishing_Idempotent(t *testing.T) {
	inputs := []string{
		"# My Title\nBody text here.",
		"Line one\nLine two\n\n\n\nNext para",
		"## Section\n\nSome **strong** words\nand *more*.\n\n### End",
	}
	for _, in := range inputs {
		once := FormatForPublishing(in)
		require.Equal(t, once, FormatForPublishing(once), "input=%q", in)
	}
}

func TestGenerateExcerpt(t *testing.T) {
	require.Equal(t, "Hello world again", GenerateExcerpt("Hello   world\n\nagain", 150))
	require.Equal(t, "Hello world", GenerateExcerpt("<p>Hello <strong>world</strong></p>", 150))
	require.Equal(t, "Title Bold text", GenerateExcerpt("# Title\n\n**Bold** text", 150))
	require.Equal(t, "Fish & Chips", GenerateExcerpt("<p>Fish &amp; Chips</p>", 150))
}

func TestGenerateExcerpt_TruncatesAtWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 50)
	require.Equal(t, "word word word word...", GenerateExcerpt(text, 20))
}

func TestGenerateExcerpt_NoSpaceToCutBack(t *testing.T) {
	out := GenerateExcerpt(strings.Repeat("a", 200), 150)
	require.Equal(t, strings.Repeat("a", 150)+"...", out)
}

func TestGenerateExcerpt_DefaultLength(t *testing.T) {
	out := GenerateExcerpt(strings.Repeat("lorem ipsum ", 40), 0)
	require.LessOrEqual(t, utf8.RuneCountInString(out), DefaultExcerptLength+3)
	require.True(t, strings.HasSuffix(out, "..."))
}

func TestGenerateExcerpt_LengthBound(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " + strings.Repeat("Pack my box with five dozen liquor jugs. ", 10)
	plain := strings.Join(strings.Fields(text), " ")
	for l := 1; l < 200; l += 7 {
		out := GenerateExcerpt(text, l)
		if utf8.RuneCountInString(plain) <= l {
			require.Equal(t, plain, out)
			continue
		}
		require.LessOrEqual(t, utf8.RuneCountInString(out), l+4, "maxLength=%d", l)
	}
}

func TestStripMarkup(t *testing.T) {
	require.Equal(t, "Title\nBody", StripMarkup("<h1>Title</h1>\n<p>Body</p>"))
	require.Equal(t, "Heading\nplain code", StripMarkup("## Heading\nplain `code`"))
	require.Equal(t, "no markup", StripMarkup("no markup"))
}
