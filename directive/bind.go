package directive

import (
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/expr"
	"github.com/pulsehtml/pulse/scope"
)

// applyBind wires two-way sync between a control and one reactive leaf.
// Unlike interpolation there is no polling fallback here: without a precise
// dependency the DOM-to-data direction has no listener key to write
// through, so the binding is abandoned with a hard error.
func (p *Processor) applyBind(n *html.Node, sc *scope.S, src string) {
	cd, err := p.compiler.Compile(src)
	if err != nil {
		p.logger.Error("p:bind compile failed", zap.String("expr", src), zap.Error(err))
		return
	}
	val, dep, err := cd.EvalTracked(sc)
	if err != nil {
		p.logger.Error("p:bind failed", zap.String("expr", src),
			zap.String("element", dom.Tag(n)), zap.Error(err))
		return
	}
	if dep == nil {
		p.logger.Error("p:bind requires a traceable dependency, binding abandoned",
			zap.String("expr", src), zap.String("element", dom.Tag(n)))
		return
	}
	checkbox := isCheckbox(n)
	if checkbox {
		p.doc.SetChecked(n, expr.Truth(val))
	} else {
		p.doc.SetValue(n, formatValue(p.store.Unwrap(val)))
	}
	// One-shot re-entrancy guard: the write-back below must not loop
	// through its own change listener.
	writingBack := false
	disp, err := p.store.RegisterKeyListener(dep.Object.Raw(), dep.Key, func(_ string, value interface{}) {
		if writingBack {
			return
		}
		if checkbox {
			p.doc.SetChecked(n, expr.Truth(value))
		} else {
			p.doc.SetValue(n, formatValue(value))
		}
	})
	if err != nil {
		p.logger.Error("p:bind listener failed", zap.String("expr", src), zap.Error(err))
		return
	}
	p.addDisposer(n, func() { disp() })
	evType := "input"
	if checkbox || dom.Tag(n) == "select" {
		evType = "change"
	}
	target := dep
	evDisp := p.doc.AddEventListener(n, evType, func(*dom.Event) {
		writingBack = true
		defer func() { writingBack = false }()
		var value interface{}
		if checkbox {
			value = p.doc.Checked(n)
		} else {
			value = coerceLike(p.doc.Value(n), target.Object.Peek(target.Key))
		}
		if err := target.Object.Set(target.Key, value); err != nil {
			p.logger.Error("p:bind write-back failed", zap.String("expr", src), zap.Error(err))
		}
	})
	p.addDisposer(n, func() { evDisp() })
}

func isCheckbox(n *html.Node) bool {
	if dom.Tag(n) != "input" {
		return false
	}
	typ, _ := dom.Attr(n, "type")
	return typ == "checkbox"
}

// coerceLike parses raw into the type the leaf currently holds, falling
// back to the raw string.
func coerceLike(raw string, current interface{}) interface{} {
	switch current.(type) {
	case int:
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	case float64:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case bool:
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return raw
}
