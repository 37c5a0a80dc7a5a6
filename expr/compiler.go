// Package expr compiles directive and interpolation expressions into
// closures evaluated against a scope. Each distinct source string is parsed
// exactly once; evaluation walks the cached tree, so no source text is ever
// re-interpreted at update time.
package expr

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
	"go.uber.org/zap"

	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/scope"
)

type Compiler struct {
	// Globals are visible to every expression, behind scope bindings.
	Globals map[string]interface{}

	store  *reactive.Store
	logger *zap.Logger
	cache  map[string]*Compiled
}

func NewCompiler(store *reactive.Store, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		Globals: map[string]interface{}{},
		store:   store,
		logger:  logger,
		cache:   map[string]*Compiled{},
	}
}

// Compiled is one parsed expression, shared by every binding of the same
// source text.
type Compiled struct {
	Src string

	c   *Compiler
	ast *js.AST
}

// Compile parses src if it has not been seen before and returns the cached
// program for it.
func (c *Compiler) Compile(src string) (*Compiled, error) {
	if cd, found := c.cache[src]; found {
		return cd, nil
	}
	ast, err := js.Parse(parse.NewInputString(src))
	if err != nil {
		return nil, CompileError{
			Message: fmt.Sprintf("cannot parse %q: %s", src, err),
			Src:     src,
		}
	}
	cd := &Compiled{Src: src, c: c, ast: ast}
	c.cache[src] = cd
	return cd, nil
}

// Eval runs the program against sc and returns the value of its last
// statement. Declarations made by the program live in an evaluation-local
// scope and never leak into sc.
func (cd *Compiled) Eval(sc *scope.S) (interface{}, error) {
	ev := &evaluator{c: cd.c, sc: childOf(cd.c.logger, sc)}
	var res interface{}
	var err error
	for _, stmt := range cd.ast.BlockStmt.List {
		if res, err = ev.eval(stmt); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Bind returns the recompute closure for one owning scope: the unit stored
// in listener registrations and the polling loop.
func (cd *Compiled) Bind(sc *scope.S) func() (interface{}, error) {
	return func() (interface{}, error) {
		return cd.Eval(sc)
	}
}

func childOf(logger *zap.Logger, sc *scope.S) *scope.S {
	child := scope.New(logger, nil)
	if sc != nil {
		child.Inherit(sc)
	}
	return child
}
