package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseBody(t *testing.T, body string) (*Document, *html.Node) {
	t.Helper()
	doc, err := ParseString("<html><head></head><body>"+body+"</body></html>", nil)
	if err != nil {
		t.Fatal(err)
	}
	return doc, doc.Body()
}

func firstByClass(t *testing.T, doc *Document, class string) *html.Node {
	t.Helper()
	nodes := doc.ElementsByClass(class)
	if len(nodes) == 0 {
		t.Fatalf("no element with class %q", class)
	}
	return nodes[0]
}

func TestElementsByClass(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a x"></div><span class="x"></span><p class="xy"></p>`)
	nodes := doc.ElementsByClass("x")
	if len(nodes) != 2 {
		t.Fatalf("found %v elements, want 2", len(nodes))
	}
	if Tag(nodes[0]) != "div" || Tag(nodes[1]) != "span" {
		t.Errorf("found %v and %v, want div and span", Tag(nodes[0]), Tag(nodes[1]))
	}
}

func TestCloneDeepIsDetached(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"><span>hi</span></div>`)
	orig := firstByClass(t, doc, "a")
	clone := CloneDeep(orig)
	if clone.Parent != nil || clone.NextSibling != nil {
		t.Error("clone is still attached")
	}
	if len(ElementChildren(clone)) != 1 {
		t.Error("clone lost its children")
	}
	SetAttr(clone, "class", "b")
	if got, _ := Attr(orig, "class"); got != "a" {
		t.Error("mutating the clone touched the original")
	}
}

func TestInsertAfter(t *testing.T) {
	doc, body := parseBody(t, `<div class="a"></div><div class="b"></div>`)
	a := firstByClass(t, doc, "a")
	n := CreateElement("p")
	InsertAfter(body, n, a)
	kids := ElementChildren(body)
	if len(kids) != 3 || Tag(kids[1]) != "p" {
		t.Errorf("insertion landed wrong: %v children", len(kids))
	}
	first := CreateElement("i")
	InsertAfter(body, first, nil)
	if ElementChildren(body)[0] != first {
		t.Error("nil ref should prepend")
	}
}

func TestRemoveAndAttached(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	if !doc.Attached(a) {
		t.Fatal("not attached before removal")
	}
	Remove(a)
	if doc.Attached(a) {
		t.Error("still attached after removal")
	}
	Remove(a)
}

func TestAttrRoundtrip(t *testing.T) {
	n := CreateElement("div")
	if _, found := Attr(n, "x"); found {
		t.Error("found an attribute on a fresh element")
	}
	SetAttr(n, "x", "1")
	SetAttr(n, "x", "2")
	if got, _ := Attr(n, "x"); got != "2" {
		t.Errorf("got %q, want \"2\"", got)
	}
	if len(n.Attr) != 1 {
		t.Errorf("%v attributes, want 1", len(n.Attr))
	}
	DelAttr(n, "x")
	if _, found := Attr(n, "x"); found {
		t.Error("attribute survived deletion")
	}
}

func TestRenderReflectsTree(t *testing.T) {
	doc, body := parseBody(t, ``)
	n := CreateElement("div")
	n.AppendChild(CreateText("hello"))
	body.AppendChild(n)
	out, err := doc.Render()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<div>hello</div>") {
		t.Errorf("rendered %q", out)
	}
}

func TestDispatchBubbles(t *testing.T) {
	doc, _ := parseBody(t, `<div class="outer"><div class="inner"></div></div>`)
	outer := firstByClass(t, doc, "outer")
	inner := firstByClass(t, doc, "inner")
	var order []string
	doc.AddEventListener(inner, "click", func(*Event) { order = append(order, "inner") })
	doc.AddEventListener(outer, "click", func(*Event) { order = append(order, "outer") })
	doc.AddEventListener(outer, "change", func(*Event) { order = append(order, "wrong type") })
	doc.Dispatch(&Event{Type: "click", Target: inner})
	want := []string{"inner", "outer"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("got %v, want %v", order, want)
	}
}

func TestEventDisposer(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	fired := 0
	dispose := doc.AddEventListener(a, "click", func(*Event) { fired++ })
	doc.Dispatch(&Event{Type: "click", Target: a})
	dispose()
	doc.Dispatch(&Event{Type: "click", Target: a})
	if fired != 1 {
		t.Errorf("fired %v times, want 1", fired)
	}
}

func TestHandlerPanicIsolated(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	fired := false
	doc.AddEventListener(a, "click", func(*Event) { panic("boom") })
	doc.AddEventListener(a, "click", func(*Event) { fired = true })
	doc.Dispatch(&Event{Type: "click", Target: a})
	if !fired {
		t.Error("a panicking handler stopped delivery")
	}
}

func TestObserveVisibleReplays(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	fired := 0
	doc.ObserveVisible(a, func() { fired++ })
	if fired != 0 {
		t.Fatal("fired before visibility")
	}
	doc.MarkVisible(a)
	doc.MarkVisible(a)
	if fired != 1 {
		t.Errorf("fired %v times, want 1", fired)
	}
	doc.ObserveVisible(a, func() { fired++ })
	if fired != 2 {
		t.Error("observing an already visible node should replay immediately")
	}
}

func TestObserveVisibleDisposer(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	fired := false
	dispose := doc.ObserveVisible(a, func() { fired = true })
	dispose()
	doc.MarkVisible(a)
	if fired {
		t.Error("disposed observer fired")
	}
}

func TestControlState(t *testing.T) {
	doc, _ := parseBody(t, `<input class="a" type="text" value="initial">`)
	in := firstByClass(t, doc, "a")
	if doc.Value(in) != "initial" {
		t.Errorf("got %q, want the value attribute", doc.Value(in))
	}
	doc.SetValue(in, "typed")
	if doc.Value(in) != "typed" {
		t.Errorf("got %q after SetValue", doc.Value(in))
	}
	if got, _ := Attr(in, "value"); got != "typed" {
		t.Error("value attribute not mirrored")
	}
	if doc.Checked(in) {
		t.Error("unchecked input reads checked")
	}
	doc.SetChecked(in, true)
	if !doc.Checked(in) {
		t.Error("SetChecked(true) not reflected")
	}
	if _, found := Attr(in, "checked"); !found {
		t.Error("checked attribute not mirrored")
	}
	doc.SetChecked(in, false)
	if _, found := Attr(in, "checked"); found {
		t.Error("checked attribute survived unchecking")
	}
}

func TestBounds(t *testing.T) {
	doc, _ := parseBody(t, `<div class="a"></div>`)
	a := firstByClass(t, doc, "a")
	if doc.Bounds(a) != (Rect{}) {
		t.Error("fresh node has bounds")
	}
	doc.SetBounds(a, Rect{X: 10, Y: 20, W: 30, H: 40})
	if doc.Bounds(a) != (Rect{X: 10, Y: 20, W: 30, H: 40}) {
		t.Errorf("got %v", doc.Bounds(a))
	}
}
