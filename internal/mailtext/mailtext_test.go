package mailtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "alice@example.com", ExtractAddress("Alice Smith <alice@example.com>"))
	assert.Equal(t, "alice@example.com", ExtractAddress(`"Smith, Alice" <alice@example.com>`))
	assert.Equal(t, "alice@example.com", ExtractAddress("alice@example.com"))
	assert.Equal(t, "alice@example.com", ExtractAddress(` "alice@example.com" `))
	assert.Equal(t, "", ExtractAddress(""))
}

func TestHTMLToTextKeepsParagraphs(t *testing.T) {
	text := HTMLToText("<p>First line</p><p>Second line</p>")
	assert.Equal(t, "First line\nSecond line", text)

	text = HTMLToText("<div>Hello<br>world</div>")
	assert.Equal(t, "Hello\nworld", text)
}

func TestHTMLToTextDropsScriptAndStyle(t *testing.T) {
	text := HTMLToText("<style>p{color:red}</style><p>Visible</p><script>alert(1)</script>")
	assert.Equal(t, "Visible", text)
}

func TestHTMLToTextCollapsesBlankRuns(t *testing.T) {
	text := HTMLToText("<p>One</p><div></div><div></div><div></div><p>Two</p>")
	assert.Equal(t, "One\n\nTwo", text)
}

func TestHTMLToTextPlainInputUnchanged(t *testing.T) {
	assert.Equal(t, "just plain text", HTMLToText("just plain text"))
}

func TestSanitizeHTMLStripsUnsafeMarkup(t *testing.T) {
	out := SanitizeHTML(`<p onclick="evil()">Hi</p><script>alert(1)</script>`)
	assert.Contains(t, out, "<p>Hi</p>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onclick")
}
