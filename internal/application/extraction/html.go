package extraction

import (
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "head": true, "iframe": true, "nav": true, "footer": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "ul": true, "ol": true,
}

// htmlToText reduces a captured page to its visible text, one block per line,
// followed by every embedded JSON-LD block verbatim
func htmlToText(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	text := strings.TrimSpace(b.String())
	for _, data := range jsonLDBlocks(doc) {
		text += "\n\nJSON-LD:\n" + data
	}
	return strings.TrimSpace(text), nil
}

// jsonLDBlocks returns the contents of every application/ld+json script, head included
func jsonLDBlocks(n *html.Node) []string {
	var blocks []string
	if isJSONLD(n) {
		if data := strings.TrimSpace(nodeText(n)); data != "" {
			blocks = append(blocks, data)
		}
		return blocks
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		blocks = append(blocks, jsonLDBlocks(c)...)
	}
	return blocks
}

func isJSONLD(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "script" {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "type" {
			return strings.EqualFold(strings.TrimSpace(a.Val), "application/ld+json")
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
