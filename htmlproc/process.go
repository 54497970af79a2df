package htmlproc

import (
	"strings"

	"pixie/model"
)

// Result is a processed UI generation.
type Result struct {
	HTML       string
	Findings   []string
	Incomplete bool
}

// Process extracts the document from a UI generation response, validates it
// and reports truncation. finishReason and maxTokens come from the call that
// produced raw and only feed the diagnostics.
func (e *Extractor) Process(raw, finishReason string, maxTokens int) Result {
	html := e.Extract(raw)
	res := Result{
		HTML:       html,
		Findings:   Validate(html),
		Incomplete: IsIncomplete(html),
	}

	if len(res.Findings) > 0 {
		e.log.Warn("HTML validation found issues", "issues", res.Findings)
	}

	if finishReason != model.FinishStop || res.Incomplete {
		e.log.Error("INCOMPLETE HTML DETECTED - The generated HTML may be truncated or malformed",
			"finish_reason", finishReason,
			"html_length", len(html),
			"ends_with_html_tag", strings.HasSuffix(html, closingHTML))
		e.log.Error("Increase LLM_UI_MAX_TOKENS environment variable", "currently", maxTokens)
	}

	return res
}
