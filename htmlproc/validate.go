package htmlproc

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	divOpenPattern    = regexp.MustCompile(`(?i)<div[^>]*>`)
	styleOpenPattern  = regexp.MustCompile(`(?i)<style[^>]*>`)
	scriptOpenPattern = regexp.MustCompile(`(?i)<script`)
	scriptBodyPattern = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	openJSXPattern    = regexp.MustCompile(`(?m)\{[^}]*$`)

	// Checked against the last 200 characters only.
	trailingOpeners = []*regexp.Regexp{
		regexp.MustCompile(`\{[^}]*$`),
		regexp.MustCompile(`\([^)]*$`),
		regexp.MustCompile(`\[[^\]]*$`),
	}
)

var requiredMarkers = []struct {
	marker  string
	finding string
}{
	{"<!doctype html>", "Missing DOCTYPE declaration"},
	{"<html", "Missing <html> tag"},
	{"</html>", "Missing closing </html> tag"},
	{"<head", "Missing <head> tag"},
	{"</head>", "Missing closing </head> tag"},
	{"<body", "Missing <body> tag"},
	{"</body>", "Missing closing </body> tag"},
	{`id="root"`, "Missing <div id='root'> for React mounting"},
	{"reactdom.render", "Missing ReactDOM.render() call"},
}

var requiredScripts = []struct {
	marker  string
	finding string
}{
	{"unpkg.com/react", "Missing React CDN script"},
	{"unpkg.com/react-dom", "Missing ReactDOM CDN script"},
	{"unpkg.com/@babel/standalone", "Missing Babel standalone script for JSX transformation"},
}

// Validate returns advisory findings about the document structure. An empty
// result means no issue was detected.
func Validate(html string) []string {
	if html == "" {
		return []string{"HTML content is empty"}
	}

	var findings []string
	lower := strings.ToLower(html)

	for _, r := range requiredMarkers {
		if !strings.Contains(lower, r.marker) {
			findings = append(findings, r.finding)
		}
	}

	for _, pair := range []struct {
		name  string
		open  *regexp.Regexp
		close string
	}{
		{"div", divOpenPattern, "</div>"},
		{"style", styleOpenPattern, "</style>"},
	} {
		opened := 0
		for _, m := range pair.open.FindAllString(html, -1) {
			if !strings.HasSuffix(strings.TrimRightFunc(m, isSpace), "/>") {
				opened++
			}
		}
		closed := strings.Count(lower, pair.close)
		if opened != closed {
			findings = append(findings, fmt.Sprintf("Unbalanced <%s>/%s tags: %d opening, %d closing", pair.name, pair.close, opened, closed))
		}
	}

	for _, r := range requiredScripts {
		if !strings.Contains(lower, r.marker) {
			findings = append(findings, r.finding)
		}
	}

	if n := len(openJSXPattern.FindAllString(html, -1)); n > 0 {
		findings = append(findings, fmt.Sprintf("Found %d potentially unclosed JSX expressions", n))
	}

	for _, m := range scriptBodyPattern.FindAllStringSubmatch(html, -1) {
		body := m[1]
		if o, c := strings.Count(body, "{"), strings.Count(body, "}"); o != c {
			findings = append(findings, fmt.Sprintf("Unbalanced braces in script section: %d opening, %d closing", o, c))
		}
		if o, c := strings.Count(body, "("), strings.Count(body, ")"); o != c {
			findings = append(findings, fmt.Sprintf("Unbalanced parentheses in script section: %d opening, %d closing", o, c))
		}
	}

	opened := len(scriptOpenPattern.FindAllStringIndex(html, -1))
	closed := strings.Count(lower, "</script>")
	if opened != closed {
		findings = append(findings, fmt.Sprintf("Unbalanced script tags: %d opening, %d closing", opened, closed))
	}

	return findings
}

// IsIncomplete reports signs of truncation: no trailing </html>, no render
// call, unbalanced script tags, or an unterminated {, ( or [ in the last 200
// characters.
func IsIncomplete(html string) bool {
	if html == "" {
		return true
	}

	lower := strings.TrimSpace(strings.ToLower(html))
	if !strings.HasSuffix(lower, "</html>") {
		return true
	}
	if !strings.Contains(lower, "reactdom.render") {
		return true
	}

	opened := strings.Count(lower, "<script")
	if opened > 0 && opened != strings.Count(lower, "</script>") {
		return true
	}

	tail := html
	if len(tail) > 200 {
		tail = tail[len(tail)-200:]
	}
	tail = strings.TrimSpace(tail)
	for _, p := range trailingOpeners {
		if p.MatchString(tail) {
			return true
		}
	}
	return false
}
