// Package extract recovers a complete HTML document from raw LLM output.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/prompt"
)

var (
	// ErrNoDocumentFound is returned when the response has no document start or no </html>
	ErrNoDocumentFound = errors.New("no valid HTML document found in response")
	// ErrIncompleteDocument is returned when the extracted slice is not a whole document
	ErrIncompleteDocument = errors.New("generated content is not a complete HTML document")
)

const closingTag = "</html>"

var (
	doctypePattern = regexp.MustCompile(`(?i)<!doctype\s+html[^>]*>`)
	htmlTagPattern = regexp.MustCompile(`(?i)<html(\s[^>]*)?>`)
)

// Document is an extracted page plus advisory validity flags
type Document struct {
	HTML         string `json:"html"`
	HasHTMLTags  bool   `json:"hasHtmlTags"`
	HasD3        bool   `json:"hasD3"`
	HasScrollama bool   `json:"hasScrollama"`
}

// ExtractHTML drops markdown fences and surrounding prose from raw model output.
// The document runs from the first doctype (or <html> tag) to the last </html>;
// text inside that range is returned unchanged.
func ExtractHTML(raw string) (string, error) {
	start := -1
	if loc := doctypePattern.FindStringIndex(raw); loc != nil {
		start = loc[0]
	} else if loc := htmlTagPattern.FindStringIndex(raw); loc != nil {
		start = loc[0]
	}
	if start < 0 {
		return "", fmt.Errorf("%w: no doctype or <html> tag", ErrNoDocumentFound)
	}

	end := strings.LastIndex(raw, closingTag)
	if end < 0 {
		return "", fmt.Errorf("%w: missing %s", ErrNoDocumentFound, closingTag)
	}
	end += len(closingTag)

	var html string
	if start < end {
		html = raw[start:end]
	}

	lower := strings.ToLower(html)
	if !strings.Contains(lower, "<html") || !strings.Contains(lower, closingTag) {
		return "", ErrIncompleteDocument
	}
	return html, nil
}

// Inspect computes the advisory flags for an extracted document
func Inspect(html string) Document {
	lower := strings.ToLower(html)
	return Document{
		HTML:         html,
		HasHTMLTags:  strings.Contains(lower, "<html") && strings.Contains(lower, closingTag),
		HasD3:        references(lower, "D3.js"),
		HasScrollama: references(lower, "Scrollama"),
	}
}

// AdvisoryWarnings lists required libraries the document never references.
// Warnings are informational; a document with warnings is still returned to the caller.
func AdvisoryWarnings(html string) []string {
	lower := strings.ToLower(html)
	var warnings []string
	for _, lib := range prompt.RequiredLibraryMarkers {
		if !references(lower, lib.Library) {
			warnings = append(warnings, fmt.Sprintf("generated HTML does not reference %s", lib.Library))
		}
	}
	return warnings
}

func references(lower, library string) bool {
	for _, lib := range prompt.RequiredLibraryMarkers {
		if lib.Library != library {
			continue
		}
		for _, m := range lib.Markers {
			if strings.Contains(lower, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}
