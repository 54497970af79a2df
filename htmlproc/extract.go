// Package htmlproc turns a raw model response into a widget document.
//
// The input is untrusted model output that is often not well-formed, so
// everything here is substring and pattern heuristics rather than an HTML
// parser. Nothing in this package fails: extraction always yields a
// best-effort document, and validation findings are advisory.
package htmlproc

import (
	"log/slog"
	"regexp"
	"strings"

	"pixie/config"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:html)?\\s*\\n?(.*?)\\n?```")
	doctypePattern = regexp.MustCompile(`(?i)<!DOCTYPE\s+html[^>]*>`)
	htmlTagPattern = regexp.MustCompile(`(?i)<html[^>]*>`)
)

const (
	doctypeLine = "<!DOCTYPE html>\n"
	closingHTML = "</html>"
)

// Extractor pulls a clean document out of raw model text.
type Extractor struct {
	log *slog.Logger
}

func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = config.Logger("htmlproc")
	}
	return &Extractor{log: log}
}

// ExtractCleanHTML runs fence stripping, boundary detection, slicing and
// repair. The result starts with a doctype or <html> tag and ends with
// </html>, unless raw is empty, in which case it is "".
//
// Applying it to its own output returns the output unchanged.
func ExtractCleanHTML(raw string) string {
	return NewExtractor(nil).Extract(raw)
}

func (e *Extractor) Extract(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if matches := fencePattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		// Commentary usually precedes the final block.
		text = matches[len(matches)-1][1]
	}

	start := -1
	for _, p := range []*regexp.Regexp{doctypePattern, htmlTagPattern} {
		if loc := p.FindStringIndex(text); loc != nil {
			start = loc[0]
			break
		}
	}
	if start == -1 {
		e.log.Warn("No HTML tag found in LLM response, attempting to extract anyway")
		start = 0
	}

	end := strings.LastIndex(text, closingHTML)
	switch {
	case end != -1:
		end += len(closingHTML)
	default:
		e.log.Warn("No closing </html> tag found in LLM response")
		if gt := strings.LastIndex(text, ">"); gt != -1 {
			end = gt + 1
		} else {
			end = len(text)
		}
	}

	// A stray </html> before the start tag would give an empty range.
	if end < start {
		end = len(text)
	}

	html := strings.TrimSpace(text[start:end])

	if lt := strings.Index(html, "<"); lt > 0 {
		html = html[lt:]
	}

	lower := strings.ToLower(html)
	if !strings.HasPrefix(lower, "<!doctype") && !strings.HasPrefix(lower, "<html") {
		e.log.Warn("Extracted content doesn't start with HTML tag, prepending <!DOCTYPE html>")
		html = doctypeLine + html
	}

	if trimmed := strings.TrimRightFunc(html, isSpace); !strings.HasSuffix(trimmed, closingHTML) {
		e.log.Warn("Extracted content doesn't end with </html>, appending closing tag")
		html = trimmed + "\n" + closingHTML
	}

	e.log.Debug("HTML extraction", "start", start, "end", end, "final_length", len(html))
	return html
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
