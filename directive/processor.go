// Package directive walks the document and wires its p: attributes and
// {{}} interpolations to the reactive store. Processing is depth first and
// idempotent per element; every registration a directive makes is collected
// as a disposer on its element so a subtree can be torn down exactly once.
package directive

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/expr"
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/sched"
	"github.com/pulsehtml/pulse/scope"
)

// MarkerClass flags the elements the bootstrap walk starts from.
const MarkerClass = "pulse"

type Processor struct {
	doc      *dom.Document
	store    *reactive.Store
	compiler *expr.Compiler
	loop     *sched.Loop
	clock    sched.Clock
	logger   *zap.Logger

	// element side tables; entries are not evicted when elements leave the
	// tree, an accepted cost of keying by node
	scopes      map[*html.Node]*scope.S
	initialized map[*html.Node]bool
	disposers   map[*html.Node][]func()
}

func New(doc *dom.Document, store *reactive.Store, compiler *expr.Compiler, loop *sched.Loop, clock sched.Clock, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = sched.RealClock()
	}
	return &Processor{
		doc:         doc,
		store:       store,
		compiler:    compiler,
		loop:        loop,
		clock:       clock,
		logger:      logger,
		scopes:      map[*html.Node]*scope.S{},
		initialized: map[*html.Node]bool{},
		disposers:   map[*html.Node][]func(){},
	}
}

// Root is the bootstrap entry: it manages model, binds its top-level names
// into the root scope and processes every marker-class element.
func (p *Processor) Root(model map[string]interface{}) error {
	managed, ok := p.store.Manage(model).(*reactive.Object)
	if !ok {
		return reactive.NotManageableError{
			Message: fmt.Sprintf("%#v is not a manageable model", model),
			Item:    model,
		}
	}
	rootScope := scope.New(p.logger, nil)
	rootScope.Add("data", managed)
	keys := managed.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		rootScope.Add(key, managed.Get(key))
	}
	for _, el := range p.doc.ElementsByClass(MarkerClass) {
		p.Process(el, rootScope)
	}
	return nil
}

// Process initializes one element and its subtree. Re-entry on an already
// initialized element is a no-op. Order per element: p:if, p:for, children,
// interpolation, p:init, p:bind, events, tooltip.
func (p *Processor) Process(n *html.Node, parent *scope.S) {
	if !dom.IsElement(n) || p.initialized[n] {
		return
	}
	p.initialized[n] = true
	sc := p.scopeFor(n)
	if parent != nil {
		sc.Inherit(parent)
	}
	if src, found := dom.Attr(n, "p:if"); found {
		if !p.applyIf(n, sc, src) {
			return
		}
	}
	handled := false
	if src, found := dom.Attr(n, "p:for"); found {
		handled = p.applyFor(n, sc, src)
	}
	if !handled {
		for _, child := range dom.ElementChildren(n) {
			p.Process(child, sc)
		}
	}
	p.bindAttrs(n, sc)
	p.bindTextChildren(n, sc)
	if src, found := dom.Attr(n, "p:init"); found {
		p.runInit(n, sc, src)
	}
	if src, found := dom.Attr(n, "p:init-vis"); found {
		p.runInitVis(n, sc, src)
	}
	if src, found := dom.Attr(n, "p:bind"); found {
		p.applyBind(n, sc, src)
	}
	p.wireEvents(n, sc)
	if src, found := dom.Attr(n, "p:tooltip"); found {
		p.applyTooltip(n, sc, src)
	}
}

func (p *Processor) scopeFor(n *html.Node) *scope.S {
	if sc, found := p.scopes[n]; found {
		return sc
	}
	sc := scope.New(p.logger, nil)
	p.scopes[n] = sc
	return sc
}

// Scope exposes an element's scope, mainly for diagnostics.
func (p *Processor) Scope(n *html.Node) (*scope.S, bool) {
	sc, found := p.scopes[n]
	return sc, found
}

func (p *Processor) addDisposer(n *html.Node, fn func()) {
	p.disposers[n] = append(p.disposers[n], fn)
}

// DisposeSubtree runs every disposer collected under n and its descendants,
// each exactly once.
func (p *Processor) DisposeSubtree(n *html.Node) {
	list := p.disposers[n]
	delete(p.disposers, n)
	for _, fn := range list {
		fn()
	}
	for _, child := range dom.Children(n) {
		p.DisposeSubtree(child)
	}
}

// applyIf evaluates once, non-reactively, with the element itself bound.
// False removes the element and ends its processing; an evaluation error is
// logged and leaves the element in place.
func (p *Processor) applyIf(n *html.Node, sc *scope.S, src string) bool {
	cd, err := p.compiler.Compile(src)
	if err != nil {
		p.logger.Error("p:if compile failed", zap.String("expr", src), zap.Error(err))
		return true
	}
	val, err := cd.Eval(p.elementScope(n, sc))
	if err != nil {
		p.logger.Error("p:if failed", zap.String("expr", src),
			zap.String("element", dom.Tag(n)), zap.Error(err))
		return true
	}
	if !expr.Truth(val) {
		dom.Remove(n)
		return false
	}
	return true
}

func (p *Processor) runInit(n *html.Node, sc *scope.S, src string) {
	cd, err := p.compiler.Compile(src)
	if err != nil {
		p.logger.Error("p:init compile failed", zap.String("expr", src), zap.Error(err))
		return
	}
	if _, err := cd.Eval(p.elementScope(n, sc)); err != nil {
		p.logger.Error("p:init failed", zap.String("expr", src),
			zap.String("element", dom.Tag(n)), zap.Error(err))
	}
}

func (p *Processor) runInitVis(n *html.Node, sc *scope.S, src string) {
	disp := p.doc.ObserveVisible(n, func() {
		p.runInit(n, sc, src)
	})
	p.addDisposer(n, func() { disp() })
}

func (p *Processor) elementScope(n *html.Node, sc *scope.S) *scope.S {
	child := scope.New(p.logger, nil)
	child.Add("element", n)
	child.Inherit(sc)
	return child
}
