package common

import (
	"strings"

	"golang.org/x/net/html"
)

// FlattenHTML reduces an HTML fragment to its text content. Upstream APIs
// occasionally answer errors with full HTML pages; report reasons quote the
// body, so it is flattened to keep them readable. Non-HTML input is
// returned trimmed and unchanged.
func FlattenHTML(body string) string {
	if !strings.Contains(body, "<") {
		return strings.TrimSpace(body)
	}

	node, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return strings.TrimSpace(body)
	}

	text := ExtractText(node)
	if text == "" {
		return strings.TrimSpace(body)
	}
	return text
}

// ExtractText gets all text content from an HTML node and its children
func ExtractText(node *html.Node) string {
	var text strings.Builder

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(node)
	return strings.Join(strings.Fields(text.String()), " ")
}
