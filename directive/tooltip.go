package directive

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/sched"
	"github.com/pulsehtml/pulse/scope"
)

const (
	tooltipDelay = 600 * time.Millisecond
	// Assumed box for clamping; the engine has no layout pass.
	tooltipWidth  = 200
	tooltipHeight = 40
	tooltipGap    = 4
)

// applyTooltip shows a floating element near n after a debounced hover
// delay, clamped to the viewport; pointer leave cancels the pending timer
// or destroys a shown tip.
func (p *Processor) applyTooltip(n *html.Node, sc *scope.S, src string) {
	cd, err := p.compiler.Compile(src)
	if err != nil {
		p.logger.Error("p:tooltip compile failed", zap.String("expr", src), zap.Error(err))
		return
	}
	var timer sched.Timer
	var tip *html.Node
	var watch sched.Disposer
	var hide func()
	show := func() {
		timer = nil
		if !p.doc.Attached(n) {
			return
		}
		val, err := cd.Eval(sc)
		if err != nil {
			p.logger.Error("p:tooltip failed", zap.String("expr", src), zap.Error(err))
			return
		}
		tip = dom.CreateElement("div")
		dom.SetAttr(tip, "class", "pulse-tooltip")
		tip.AppendChild(dom.CreateText(formatValue(p.store.Unwrap(val))))
		x, y := p.tooltipPosition(n)
		dom.SetAttr(tip, "style", fmt.Sprintf("left:%dpx;top:%dpx", x, y))
		p.doc.Body().AppendChild(tip)
		// A shown tip must not outlive its anchor.
		watch = p.loop.AddPoll(func() {
			if !p.doc.Attached(n) {
				hide()
			}
		})
	}
	hide = func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		if watch != nil {
			watch()
			watch = nil
		}
		if tip != nil {
			dom.Remove(tip)
			tip = nil
		}
	}
	enter := p.doc.AddEventListener(n, "pointerenter", func(*dom.Event) {
		if timer != nil {
			timer.Stop()
		}
		timer = p.clock.AfterFunc(tooltipDelay, show)
	})
	leave := p.doc.AddEventListener(n, "pointerleave", func(*dom.Event) {
		hide()
	})
	p.addDisposer(n, func() {
		enter()
		leave()
		hide()
	})
}

func (p *Processor) tooltipPosition(n *html.Node) (int, int) {
	b := p.doc.Bounds(n)
	vp := p.doc.Viewport
	x := b.X
	y := b.Y + b.H + tooltipGap
	if x+tooltipWidth > vp.W {
		x = vp.W - tooltipWidth
	}
	if x < 0 {
		x = 0
	}
	if y+tooltipHeight > vp.H {
		y = b.Y - tooltipHeight - tooltipGap
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
