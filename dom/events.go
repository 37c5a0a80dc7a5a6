package dom

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type Disposer func()

// Event is a synthetic DOM event. Target is where it was dispatched;
// handlers on ancestors see it through bubbling.
type Event struct {
	Type   string
	Target *html.Node
}

type eventHandler struct {
	typ  string
	fn   func(*Event)
	gone bool
}

// AddEventListener registers fn for events of type typ on n.
func (d *Document) AddEventListener(n *html.Node, typ string, fn func(*Event)) Disposer {
	h := &eventHandler{typ: typ, fn: fn}
	d.handlers[n] = append(d.handlers[n], h)
	return func() {
		h.gone = true
		list := d.handlers[n]
		for i, cand := range list {
			if cand == h {
				d.handlers[n] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Dispatch delivers ev to the target's handlers and then bubbles it up the
// parent chain. A handler failure is logged and does not stop delivery to
// the remaining handlers.
func (d *Document) Dispatch(ev *Event) {
	for n := ev.Target; n != nil; n = n.Parent {
		list := d.handlers[n]
		if len(list) == 0 {
			continue
		}
		snapshot := make([]*eventHandler, len(list))
		copy(snapshot, list)
		for _, h := range snapshot {
			if h.gone || h.typ != ev.Type {
				continue
			}
			d.callHandler(h, ev)
		}
	}
}

func (d *Document) callHandler(h *eventHandler, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler failed",
				zap.String("event", ev.Type),
				zap.Any("panic", r))
		}
	}()
	h.fn(ev)
}
