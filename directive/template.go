package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/expr"
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/scope"
)

// Shortest match between {{ and the next }}.
var interpPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// interp keeps one reactive text node or attribute value in sync. Every
// distinct expression recomputes into a per-occurrence cache; the
// surrounding string is rebuilt and written once only when at least one
// occurrence actually changed.
type interp struct {
	p        *Processor
	context  string
	literals []string
	exprs    []*expr.Compiled
	bound    []func() (interface{}, error)
	cache    []interface{}
	primed   bool
	write    func(string)
}

// bindTextChildren binds the direct text children of n; nested elements
// bind their own.
func (p *Processor) bindTextChildren(n *html.Node, sc *scope.S) {
	for _, child := range dom.Children(n) {
		if child.Type != html.TextNode {
			continue
		}
		node := child
		p.bindInterp(n, sc, node.Data, "text in <"+dom.Tag(n)+">", func(s string) {
			node.Data = s
		})
	}
}

// bindAttrs binds every non-directive attribute of n that interpolates.
func (p *Processor) bindAttrs(n *html.Node, sc *scope.S) {
	for _, a := range append([]html.Attribute(nil), n.Attr...) {
		if strings.HasPrefix(a.Key, "p:") {
			continue
		}
		key := a.Key
		if !interpPattern.MatchString(a.Val) {
			continue
		}
		reapply := p.bindInterp(n, sc, a.Val, key+" on <"+dom.Tag(n)+">", func(s string) {
			dom.SetAttr(n, key, s)
		})
		// A value expansion on a select lands before its options exist;
		// reapply once when the control first paints.
		if key == "value" && dom.Tag(n) == "select" && reapply != nil {
			disp := p.doc.ObserveVisible(n, reapply)
			p.addDisposer(n, func() { disp() })
		}
	}
}

// bindInterp establishes the live binding for one surface and returns a
// closure that re-writes the current value, or nil if the surface has no
// interpolation.
func (p *Processor) bindInterp(owner *html.Node, sc *scope.S, raw, context string, write func(string)) func() {
	matches := interpPattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return nil
	}
	it := &interp{p: p, context: context, write: write}
	prev := 0
	for _, m := range matches {
		it.literals = append(it.literals, raw[prev:m[0]])
		src := strings.TrimSpace(raw[m[2]:m[3]])
		cd, err := p.compiler.Compile(src)
		if err != nil {
			p.logger.Error("interpolation compile failed",
				zap.String("expr", src), zap.String("context", context), zap.Error(err))
			cd = nil
		}
		it.exprs = append(it.exprs, cd)
		if cd != nil {
			it.bound = append(it.bound, cd.Bind(sc))
		} else {
			it.bound = append(it.bound, nil)
		}
		it.cache = append(it.cache, nil)
		prev = m[1]
	}
	it.literals = append(it.literals, raw[prev:])
	// Each occurrence resolves its own dependency: precise leaf when the
	// tracked evaluation finds one, polling otherwise.
	polled := false
	seen := map[string]bool{}
	for _, cd := range it.exprs {
		if cd == nil || seen[cd.Src] {
			continue
		}
		seen[cd.Src] = true
		_, dep, err := cd.EvalTracked(sc)
		if err != nil {
			p.logger.Error("interpolation failed",
				zap.String("expr", cd.Src), zap.String("context", context), zap.Error(err))
			continue
		}
		if dep != nil {
			disp, regErr := p.store.RegisterKeyListener(dep.Object.Raw(), dep.Key, func(string, interface{}) {
				it.recompute()
			})
			if regErr == nil {
				p.addDisposer(owner, func() { disp() })
				continue
			}
		}
		if !polled {
			polled = true
			disp := p.loop.AddPoll(it.recompute)
			p.addDisposer(owner, func() { disp() })
		}
	}
	it.recompute()
	return func() { it.write(it.current()) }
}

// recompute re-evaluates every occurrence and writes the rebuilt string
// once if anything changed.
func (it *interp) recompute() {
	changed := !it.primed
	it.primed = true
	for i, recompute := range it.bound {
		if recompute == nil {
			continue
		}
		val, err := recompute()
		if err != nil {
			it.p.logger.Error("interpolation failed",
				zap.String("expr", it.exprs[i].Src), zap.String("context", it.context), zap.Error(err))
			continue
		}
		val = it.p.store.Unwrap(val)
		if !expr.StrictEq(it.cache[i], val) {
			it.cache[i] = val
			changed = true
		}
	}
	if changed {
		it.write(it.current())
	}
}

func (it *interp) current() string {
	var b strings.Builder
	for i, lit := range it.literals {
		b.WriteString(lit)
		if i < len(it.cache) {
			b.WriteString(formatValue(it.cache[i]))
		}
	}
	return b.String()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *reactive.Object:
		return fmt.Sprint(val.Raw())
	}
	return fmt.Sprint(v)
}
