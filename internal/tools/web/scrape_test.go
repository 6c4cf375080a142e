package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextStripsMarkup(t *testing.T) {
	html := `<html><head><title>News</title><style>p{color:red}</style>
<script>alert("x")</script></head>
<body><h1>Apple beats estimates</h1><p>Revenue grew &amp; margins held.</p></body></html>`

	text := ExtractText(html)
	assert.Contains(t, text, "Apple beats estimates")
	assert.Contains(t, text, "Revenue grew & margins held.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestExtractTextTruncatesLongPages(t *testing.T) {
	html := "<p>" + strings.Repeat("word ", 5000) + "</p>"

	text := ExtractText(html)
	assert.LessOrEqual(t, len([]rune(text)), maxScrapeRunes+len("\n[truncated]"))
	assert.True(t, strings.HasSuffix(text, "[truncated]"))
}
