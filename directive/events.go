package directive

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/scope"
)

const onPrefix = "p:on-"

// wireEvents wires every p:on-<names> attribute. The handler expression
// runs with event and element bound; a failure is logged with its context
// and rethrown, so the dispatcher's per-handler isolation keeps it from
// unrelated handlers.
func (p *Processor) wireEvents(n *html.Node, sc *scope.S) {
	for _, a := range n.Attr {
		if !strings.HasPrefix(a.Key, onPrefix) {
			continue
		}
		cd, err := p.compiler.Compile(a.Val)
		if err != nil {
			p.logger.Error("p:on compile failed",
				zap.String("expr", a.Val), zap.String("element", dom.Tag(n)), zap.Error(err))
			continue
		}
		for _, name := range strings.Split(a.Key[len(onPrefix):], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			disp := p.doc.AddEventListener(n, name, func(ev *dom.Event) {
				hsc := scope.New(p.logger, nil)
				hsc.Add("event", ev)
				hsc.Add("element", n)
				hsc.Inherit(sc)
				if _, err := cd.Eval(hsc); err != nil {
					p.logger.Error("event handler failed",
						zap.String("event", ev.Type),
						zap.String("expr", cd.Src),
						zap.String("element", dom.Tag(n)),
						zap.Error(err))
					panic(err)
				}
			})
			p.addDisposer(n, func() { disp() })
		}
	}
}
