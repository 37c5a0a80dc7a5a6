package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CloneDeep copies a node and its whole subtree. The copy has no parent and
// no siblings.
func CloneDeep(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		clone.AppendChild(CloneDeep(child))
	}
	return clone
}

// Remove detaches n from its parent, if it has one.
func Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// InsertAfter inserts n into parent immediately after ref. A nil ref
// prepends.
func InsertAfter(parent, n, ref *html.Node) {
	if ref == nil {
		parent.InsertBefore(n, parent.FirstChild)
		return
	}
	parent.InsertBefore(n, ref.NextSibling)
}

// InsertBefore inserts n into parent immediately before ref. A nil ref
// appends.
func InsertBefore(parent, n, ref *html.Node) {
	parent.InsertBefore(n, ref)
}

func IsElement(n *html.Node) bool {
	return n.Type == html.ElementNode
}

func IsTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Template
}

// ElementChildren returns the element-typed children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var res []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if IsElement(child) {
			res = append(res, child)
		}
	}
	return res
}

// Children returns every child of n, elements and text alike.
func Children(n *html.Node) []*html.Node {
	var res []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		res = append(res, child)
	}
	return res
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func DelAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func CreateElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
}

func CreateText(text string) *html.Node {
	return &html.Node{
		Type: html.TextNode,
		Data: text,
	}
}

// Contains reports whether n is root or a descendant of root.
func Contains(root, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Tag returns the element name, or "" for non-elements.
func Tag(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return n.Data
}
