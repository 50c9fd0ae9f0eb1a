package htmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// rawTextElements render their text children verbatim, so whatever markup
// that text spells out would come back to life in the output.
const rawTextElements = "iframe, noembed, noframes, xmp, plaintext"

// Sanitizer removes script, style and comment nodes from a document and
// renders everything else back unchanged.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

func (s *Sanitizer) Sanitize(raw string) string {
	doc, err := parseDocument(raw)
	if err != nil {
		return ""
	}

	// noscript renders its text literally, so keep the children and drop the wrapper.
	doc.Find("noscript").Each(func(_ int, noscript *goquery.Selection) {
		noscript.ReplaceWithSelection(noscript.Contents())
	})
	doc.Find("script, style").Remove()
	removeComments(doc.Nodes...)
	neutralizeRawText(doc)

	var sb strings.Builder
	for _, node := range doc.Nodes {
		if err := html.Render(&sb, node); err != nil {
			return ""
		}
	}
	return sb.String()
}

// parseDocument parses with scripting disabled so <noscript> bodies become
// real nodes instead of raw text that could smuggle markup through.
func parseDocument(raw string) (*goquery.Document, error) {
	root, err := html.ParseWithOptions(strings.NewReader(raw), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

func removeComments(roots ...*html.Node) {
	var comments []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.CommentNode {
			comments = append(comments, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for _, root := range roots {
		collect(root)
	}

	for _, node := range comments {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// neutralizeRawText rewrites the text of raw-text elements to the escaped
// plain text it would parse to, minus scripts, styles and comments.
func neutralizeRawText(doc *goquery.Document) {
	doc.Find(rawTextElements).Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			if node.Namespace != "" {
				continue
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					c.Data = html.EscapeString(inertText(c.Data))
				}
			}
		}
	})
}

func inertText(raw string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		return raw
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			sb.WriteString(node.Data)
			return
		case node.Type == html.CommentNode:
			return
		case node.Type == html.ElementNode && (node.DataAtom == atom.Script || node.DataAtom == atom.Style):
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range nodes {
		walk(node)
	}
	return sb.String()
}
