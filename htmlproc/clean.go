package htmlproc

import (
	"regexp"
	"strings"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	blankRunPattern    = regexp.MustCompile(`\n{3,}`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
		"&mdash;", "—",
		"&ndash;", "–",
	)
)

// CleanHTMLFromText strips markup from a text response while leaving its
// Markdown intact. Script and style blocks are dropped with their contents.
func CleanHTMLFromText(text string) string {
	if text == "" {
		return text
	}

	text = scriptBlockPattern.ReplaceAllString(text, "")
	text = styleBlockPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ContainsMarkup reports whether text holds something shaped like a tag.
func ContainsMarkup(text string) bool {
	return tagPattern.MatchString(text)
}
