package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "fenced with prose",
			raw:      "Sure! ```html\n<!DOCTYPE html><html><body>x</body></html>\n``` Hope this helps",
			expected: "<!DOCTYPE html><html><body>x</body></html>",
		},
		{
			name:     "bare document",
			raw:      "<!DOCTYPE html><html><body>x</body></html>",
			expected: "<!DOCTYPE html><html><body>x</body></html>",
		},
		{
			name:     "lowercase doctype with leading whitespace",
			raw:      "\n\n   <!doctype html>\n<html lang=\"en\"><head></head></html>  \n",
			expected: "<!doctype html>\n<html lang=\"en\"><head></head></html>",
		},
		{
			name:     "html tag without doctype",
			raw:      "Here you go:\n<html lang=\"en\"><body>y</body></html>",
			expected: "<html lang=\"en\"><body>y</body></html>",
		},
		{
			name:     "html tag not confused with longer tag name",
			raw:      "<htmlx> is not a tag <HTML><body></body></html>",
			expected: "<HTML><body></body></html>",
		},
		{
			name:     "fences inside the document are kept",
			raw:      "```html\n<!DOCTYPE html><html><body><pre>```js\nx()\n```</pre></body></html>\n```",
			expected: "<!DOCTYPE html><html><body><pre>```js\nx()\n```</pre></body></html>",
		},
		{
			name:     "two documents keep outer boundary",
			raw:      "<!DOCTYPE html><html>one</html>\ntext\n<!DOCTYPE html><html>two</html>",
			expected: "<!DOCTYPE html><html>one</html>\ntext\n<!DOCTYPE html><html>two</html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := ExtractHTML(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, html)
		})
	}
}

func TestExtractHTMLFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrNoDocumentFound},
		{"prose only", "I cannot help with that.", ErrNoDocumentFound},
		{"no opening tag", "<body>text</body></html>", ErrNoDocumentFound},
		{"no closing tag", "<!DOCTYPE html><html><body>cut off", ErrNoDocumentFound},
		{"closing before opening", "</html> then <!DOCTYPE html><html><body>", ErrIncompleteDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := ExtractHTML(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Empty(t, html)
		})
	}
}

func TestExtractHTMLMissingHTMLElement(t *testing.T) {
	_, err := ExtractHTML("<!DOCTYPE html><body>text</body></html>")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteDocument)
}

func TestExtractHTMLIsIdempotent(t *testing.T) {
	raw := "```html\n<!DOCTYPE html><html><head><script src=\"https://d3js.org/d3.v7.min.js\"></script></head></html>\n```"
	first, err := ExtractHTML(raw)
	require.NoError(t, err)
	second, err := ExtractHTML(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInspectAndAdvisoryWarnings(t *testing.T) {
	full := `<!DOCTYPE html><html><head>
<script src="https://d3js.org/d3.v7.min.js"></script>
<script src="https://unpkg.com/scrollama"></script>
</head><body></body></html>`

	doc := Inspect(full)
	assert.True(t, doc.HasHTMLTags)
	assert.True(t, doc.HasD3)
	assert.True(t, doc.HasScrollama)
	assert.Equal(t, full, doc.HTML)
	assert.Empty(t, AdvisoryWarnings(full))

	bare := "<!DOCTYPE html><html><body>chart</body></html>"
	doc = Inspect(bare)
	assert.True(t, doc.HasHTMLTags)
	assert.False(t, doc.HasD3)
	assert.False(t, doc.HasScrollama)

	warnings := AdvisoryWarnings(bare)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "D3.js")
	assert.Contains(t, warnings[1], "Scrollama")
}
