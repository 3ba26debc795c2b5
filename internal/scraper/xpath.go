package scraper

import (
	"fmt"

	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// selectXPath evaluates expr against root and returns the matched element nodes.
func selectXPath(root *html.Node, expr string) ([]*html.Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath expression '%s': %w", expr, err)
	}

	iter := compiled.Select(createHTMLNavigator(root))
	var nodes []*html.Node
	for iter.MoveNext() {
		if nav, ok := iter.Current().(*htmlNavigator); ok && nav.pos == 0 {
			nodes = append(nodes, nav.node)
		}
	}
	return nodes, nil
}

// htmlNavigator implements xpath.NodeNavigator for HTML nodes.
// pos 0 is the node itself, pos n is its n-th attribute.
type htmlNavigator struct {
	node *html.Node
	pos  int
}

func createHTMLNavigator(root *html.Node) *htmlNavigator {
	return &htmlNavigator{node: root, pos: 0}
}

func (h *htmlNavigator) onAttribute() bool {
	return h.node.Type == html.ElementNode && h.pos > 0 && h.pos <= len(h.node.Attr)
}

func (h *htmlNavigator) NodeType() xpath.NodeType {
	switch h.node.Type {
	case html.DocumentNode:
		return xpath.RootNode
	case html.ElementNode:
		if h.onAttribute() {
			return xpath.AttributeNode
		}
		return xpath.ElementNode
	case html.TextNode:
		return xpath.TextNode
	case html.CommentNode:
		return xpath.CommentNode
	default:
		return xpath.ElementNode
	}
}

func (h *htmlNavigator) LocalName() string {
	if h.node.Type == html.ElementNode {
		if h.onAttribute() {
			return h.node.Attr[h.pos-1].Key
		}
		return h.node.Data
	}
	return ""
}

func (h *htmlNavigator) Prefix() string {
	return ""
}

func (h *htmlNavigator) Value() string {
	switch h.node.Type {
	case html.TextNode, html.CommentNode:
		return h.node.Data
	case html.ElementNode:
		if h.onAttribute() {
			return h.node.Attr[h.pos-1].Val
		}
		return textContent(h.node)
	case html.DocumentNode:
		return textContent(h.node)
	}
	return ""
}

func (h *htmlNavigator) Copy() xpath.NodeNavigator {
	return &htmlNavigator{node: h.node, pos: h.pos}
}

func (h *htmlNavigator) MoveToRoot() {
	for h.node.Parent != nil {
		h.node = h.node.Parent
	}
	h.pos = 0
}

func (h *htmlNavigator) MoveToParent() bool {
	// From an attribute the parent is the owning element.
	if h.pos > 0 {
		h.pos = 0
		return true
	}
	if h.node.Parent != nil {
		h.node = h.node.Parent
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToNextAttribute() bool {
	if h.node.Type == html.ElementNode && h.pos < len(h.node.Attr) {
		h.pos++
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToChild() bool {
	if h.pos > 0 {
		return false
	}
	if h.node.FirstChild != nil {
		h.node = h.node.FirstChild
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToFirst() bool {
	if h.pos > 0 {
		return false
	}
	if h.node.Parent != nil && h.node.Parent.FirstChild != nil {
		h.node = h.node.Parent.FirstChild
		return true
	}
	return false
}

func (h *htmlNavigator) String() string {
	return h.Value()
}

func (h *htmlNavigator) MoveToNext() bool {
	if h.pos > 0 {
		return false
	}
	if h.node.NextSibling != nil {
		h.node = h.node.NextSibling
		return true
	}
	return false
}

func (h *htmlNavigator) MoveToPrevious() bool {
	if h.pos > 0 {
		return false
	}
	if h.node.PrevSibling != nil {
		h.node = h.node.PrevSibling
		return true
	}
	return false
}

func (h *htmlNavigator) MoveTo(other xpath.NodeNavigator) bool {
	if o, ok := other.(*htmlNavigator); ok {
		h.node = o.node
		h.pos = o.pos
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var out []byte
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, textContent(c)...)
	}
	return string(out)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
