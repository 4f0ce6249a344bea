package textprep

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags is the set of elements that end a visual block. Each contributes
// one space after its children so adjacent blocks never concatenate.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"canvas": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "noscript": true, "ol": true, "output": true, "p": true,
	"pre": true, "section": true, "table": true, "tfoot": true, "ul": true,
	"video": true, "tr": true, "td": true, "th": true, "br": true,
}

// ExtractText strips markup from an HTML fragment and returns whitespace-
// squeezed, trimmed plain text. Script and style subtrees are dropped
// entirely, entities are decoded by the parser, and block-level elements are
// separated by a single space. Inline elements concatenate directly.
//
// Malformed markup never fails: the underlying parser recovers best-effort,
// so the result degrades rather than erroring.
func ExtractText(input string) string {
	// Fast path: nothing to parse when the input carries no tags or entities.
	if !strings.ContainsAny(input, "<&") {
		return SqueezeWhitespace(strings.TrimSpace(input))
	}

	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader cannot
		// produce one, but degrade to the squeezed input just in case.
		return SqueezeWhitespace(strings.TrimSpace(input))
	}

	var b strings.Builder
	b.Grow(len(input))
	walkText(doc, &b)
	return SqueezeWhitespace(strings.TrimSpace(b.String()))
}

func walkText(n *html.Node, out *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		out.WriteString(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if tag == "script" || tag == "style" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkText(c, out)
		}
		if blockTags[tag] {
			out.WriteByte(' ')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, out)
	}
}
