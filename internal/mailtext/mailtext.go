// Package mailtext holds the text plumbing shared by the view controllers:
// HTML sanitization for rendering, HTML-to-text conversion for seeding draft
// editors, and recipient address extraction.
package mailtext

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	ugcPolicy    *bluemonday.Policy
	strictPolicy *bluemonday.Policy
)

func init() {
	ugcPolicy = bluemonday.UGCPolicy()
	ugcPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	ugcPolicy.AllowAttrs("style").OnElements("span", "div", "p")
	ugcPolicy.RequireParseableURLs(true)
	ugcPolicy.AllowURLSchemes("http", "https", "mailto")

	strictPolicy = bluemonday.StrictPolicy()
}

// SanitizeHTML strips unsafe markup from a message body before it is handed
// to a renderer.
func SanitizeHTML(body string) string {
	return ugcPolicy.Sanitize(body)
}

// HTMLToText converts an HTML message body to plain text. Block-level
// elements become newlines so a seeded draft editor keeps its paragraphs.
func HTMLToText(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		// Fall back to tag stripping; better a flat draft than a lost one.
		return strings.TrimSpace(strictPolicy.Sanitize(body))
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			case "br":
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	return collapseBlankLines(b.String())
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

var bracketedAddr = regexp.MustCompile(`<(.*?)>`)

// ExtractAddress pulls the bare address out of a header value. Addresses may
// arrive as free text or as `Display Name <addr>`; the bracketed token wins
// when present, otherwise quote and angle-bracket characters are stripped.
func ExtractAddress(header string) string {
	if m := bracketedAddr.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return strings.TrimSpace(strings.NewReplacer(`"`, "", "<", "", ">", "").Replace(header))
}
