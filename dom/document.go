// Package dom is the document layer: a parsed HTML tree plus the side
// tables the reactive engine needs and a browser cannot give us here,
// namely event listeners, live control state, visibility and geometry.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Rect is a node's layout box in viewport coordinates.
type Rect struct {
	X, Y, W, H int
}

type controlState struct {
	value   string
	checked bool
}

// Document wraps one parsed tree. The side tables are keyed by node and are
// not evicted when nodes leave the tree; disposal is best-effort and the
// residue lives until the document does.
type Document struct {
	Root     *html.Node
	Viewport Rect

	logger   *zap.Logger
	handlers map[*html.Node][]*eventHandler
	values   map[*html.Node]*controlState
	visible  map[*html.Node]bool
	visObs   map[*html.Node][]*visObserver
	bounds   map[*html.Node]Rect
}

func New(root *html.Node, logger *zap.Logger) *Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document{
		Root:     root,
		Viewport: Rect{W: 1024, H: 768},
		logger:   logger,
		handlers: map[*html.Node][]*eventHandler{},
		values:   map[*html.Node]*controlState{},
		visible:  map[*html.Node]bool{},
		visObs:   map[*html.Node][]*visObserver{},
		bounds:   map[*html.Node]Rect{},
	}
}

func Parse(r io.Reader, logger *zap.Logger) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return New(root, logger), nil
}

func ParseString(src string, logger *zap.Logger) (*Document, error) {
	return Parse(strings.NewReader(src), logger)
}

// Render serializes the current tree.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ElementsByClass finds the elements carrying class, in document order.
func (d *Document) ElementsByClass(class string) []*html.Node {
	xpath := fmt.Sprintf("//*[contains(concat(' ', normalize-space(@class), ' '), ' %s ')]", class)
	nodes, err := htmlquery.QueryAll(d.Root, xpath)
	if err != nil {
		d.logger.Error("class query failed", zap.String("class", class), zap.Error(err))
		return nil
	}
	return nodes
}

// Body returns the document's body element, or the root when the tree has
// none (fragments under test).
func (d *Document) Body() *html.Node {
	if body, err := htmlquery.Query(d.Root, "//body"); err == nil && body != nil {
		return body
	}
	return d.Root
}

// Attached reports whether n is still in the document tree.
func (d *Document) Attached(n *html.Node) bool {
	return Contains(d.Root, n)
}

// Value returns a control's live value: the side table if written, else the
// value attribute.
func (d *Document) Value(n *html.Node) string {
	if st, found := d.values[n]; found {
		return st.value
	}
	val, _ := Attr(n, "value")
	return val
}

// SetValue writes a control's value programmatically. No input event is
// dispatched; simulated user input does that itself.
func (d *Document) SetValue(n *html.Node, value string) {
	st := d.ensureState(n)
	st.value = value
	SetAttr(n, "value", value)
}

func (d *Document) Checked(n *html.Node) bool {
	if st, found := d.values[n]; found {
		return st.checked
	}
	_, found := Attr(n, "checked")
	return found
}

func (d *Document) SetChecked(n *html.Node, checked bool) {
	st := d.ensureState(n)
	st.checked = checked
	if checked {
		SetAttr(n, "checked", "")
	} else {
		DelAttr(n, "checked")
	}
}

func (d *Document) ensureState(n *html.Node) *controlState {
	st, found := d.values[n]
	if !found {
		val, _ := Attr(n, "value")
		_, checked := Attr(n, "checked")
		st = &controlState{value: val, checked: checked}
		d.values[n] = st
	}
	return st
}

// Bounds returns the layout box recorded for n, zero if none was set.
func (d *Document) Bounds(n *html.Node) Rect {
	return d.bounds[n]
}

func (d *Document) SetBounds(n *html.Node, r Rect) {
	d.bounds[n] = r
}
