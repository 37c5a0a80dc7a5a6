package expr

import (
	"fmt"
	"strconv"

	"github.com/tdewolff/parse/v2/js"

	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/scope"
)

type evaluator struct {
	c  *Compiler
	sc *scope.S
}

func (e *evaluator) eval(i interface{}) (interface{}, error) {
	if i == nil {
		return nil, nil
	}
	switch v := i.(type) {
	case *js.ExprStmt:
		return e.eval(v.Value)
	case *js.DirectivePrologueStmt:
		return e.evalLiteral(&js.LiteralExpr{TokenType: js.StringToken, Data: v.Value})
	case *js.BlockStmt:
		return e.evalBlock(v)
	case *js.IfStmt:
		return nil, e.evalIf(v)
	case *js.ReturnStmt:
		return e.eval(v.Value)
	case *js.VarDecl:
		return nil, e.evalVarDecl(v)
	case *js.LiteralExpr:
		return e.evalLiteral(v)
	case *js.Var:
		return e.resolve(string(v.Data))
	case *js.GroupExpr:
		return e.eval(v.X)
	case *js.UnaryExpr:
		return e.evalUnary(v)
	case *js.BinaryExpr:
		return e.evalBinary(v)
	case *js.CondExpr:
		return e.evalCond(v)
	case *js.DotExpr:
		return e.evalDot(v)
	case *js.IndexExpr:
		return e.evalIndex(v)
	case *js.CallExpr:
		return e.evalCall(v)
	case *js.ArrowFunc:
		return e.generateFunc(&v.Body, v.Params), nil
	case *js.ObjectExpr:
		return e.evalObject(v)
	case *js.ArrayExpr:
		return e.evalArray(v)
	}
	return nil, NotImplementedError{
		Message: fmt.Sprintf("evaluating %#v not implemented", i),
		Item:    i,
	}
}

func (e *evaluator) resolve(name string) (interface{}, error) {
	if b, err := e.sc.Resolve(name); err == nil {
		return b.Value, nil
	}
	if item, found := e.c.Globals[name]; found {
		return item, nil
	}
	return nil, scope.BindingNotFoundError{
		Message: fmt.Sprintf("%q is not bound", name),
		Name:    name,
	}
}

func (e *evaluator) evalBlock(stmt *js.BlockStmt) (interface{}, error) {
	outer := e.sc
	e.sc = childOf(e.c.logger, outer)
	defer func() {
		e.sc = outer
	}()
	var res interface{}
	var err error
	for _, i := range stmt.List {
		if res, err = e.eval(i); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (e *evaluator) evalIf(stmt *js.IfStmt) error {
	cond, err := e.eval(stmt.Cond)
	if err != nil {
		return err
	}
	if Truth(cond) {
		_, err = e.eval(stmt.Body)
	} else {
		_, err = e.eval(stmt.Else)
	}
	return err
}

func (e *evaluator) evalVarDecl(decl *js.VarDecl) error {
	for _, el := range decl.List {
		value, err := e.eval(el.Default)
		if err != nil {
			return err
		}
		bind, ok := el.Binding.(*js.Var)
		if !ok {
			return NotImplementedError{
				Message: fmt.Sprintf("binding element %#v not implemented", el),
				Item:    el,
			}
		}
		if err := e.sc.Add(string(bind.Data), value); err != nil {
			return err
		}
	}
	return nil
}

func (e *evaluator) evalLiteral(expr *js.LiteralExpr) (interface{}, error) {
	switch expr.TokenType {
	case js.DecimalToken:
		if intVal, err := strconv.Atoi(string(expr.Data)); err == nil {
			return intVal, nil
		}
		return strconv.ParseFloat(string(expr.Data), 64)
	case js.StringToken:
		return string(expr.Data[1 : len(expr.Data)-1]), nil
	case js.TrueToken:
		return true, nil
	case js.FalseToken:
		return false, nil
	case js.NullToken:
		return nil, nil
	}
	return nil, NotImplementedError{
		Message: fmt.Sprintf("literal %#v not implemented", expr),
		Item:    expr,
	}
}

func (e *evaluator) evalUnary(expr *js.UnaryExpr) (interface{}, error) {
	x, err := e.eval(expr.X)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case js.NotToken:
		return !Truth(x), nil
	case js.NegToken, js.SubToken:
		switch v := x.(type) {
		case int:
			return -v, nil
		case float64:
			return -v, nil
		}
	case js.PosToken, js.AddToken:
		switch x.(type) {
		case int, float64:
			return x, nil
		}
	}
	return nil, NotImplementedError{
		Message: fmt.Sprintf("unary %v of %#v not implemented", expr.Op, x),
		Item:    expr,
	}
}

func (e *evaluator) evalCond(expr *js.CondExpr) (interface{}, error) {
	cond, err := e.eval(expr.Cond)
	if err != nil {
		return nil, err
	}
	if Truth(cond) {
		return e.eval(expr.X)
	}
	return e.eval(expr.Y)
}

func (e *evaluator) evalDot(expr *js.DotExpr) (interface{}, error) {
	x, err := e.eval(expr.X)
	if err != nil {
		return nil, err
	}
	return e.member(x, string(expr.Y.Data))
}

func (e *evaluator) evalIndex(expr *js.IndexExpr) (interface{}, error) {
	x, err := e.eval(expr.X)
	if err != nil {
		return nil, err
	}
	y, err := e.eval(expr.Y)
	if err != nil {
		return nil, err
	}
	return e.member(x, memberKey(y))
}

func (e *evaluator) member(x interface{}, key string) (interface{}, error) {
	switch v := x.(type) {
	case *reactive.Object:
		return v.Get(key), nil
	case map[string]interface{}:
		return v[key], nil
	case []interface{}:
		if key == "length" {
			return len(v), nil
		}
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, NonIntegerIndexError{
				Message: fmt.Sprintf("can only index arrays using integers, not %q", key),
				Item:    v,
				Index:   key,
			}
		}
		if idx < 0 || idx >= len(v) {
			return nil, IndexOutOfBoundsError{
				Message: fmt.Sprintf("can only index within length %v of array, not %v", len(v), idx),
				Item:    v,
				Index:   idx,
			}
		}
		return v[idx], nil
	case string:
		if key == "length" {
			return len(v), nil
		}
	}
	return nil, NotObjectError{
		Message: fmt.Sprintf("%#v is not an object", x),
		Item:    x,
	}
}

func (e *evaluator) evalCall(expr *js.CallExpr) (interface{}, error) {
	callable, err := e.eval(expr.X)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(expr.Args.List))
	for idx := range args {
		if args[idx], err = e.eval(expr.Args.List[idx].Value); err != nil {
			return nil, err
		}
	}
	return Call(callable, args)
}

func (e *evaluator) evalObject(expr *js.ObjectExpr) (interface{}, error) {
	res := map[string]interface{}{}
	for _, prop := range expr.List {
		name := string(prop.Name.Literal.Data)
		if prop.Name.Computed != nil {
			iName, err := e.eval(prop.Name.Computed)
			if err != nil {
				return nil, err
			}
			name = memberKey(iName)
		}
		value, err := e.eval(prop.Value)
		if err != nil {
			return nil, err
		}
		res[name] = value
	}
	return res, nil
}

func (e *evaluator) evalArray(expr *js.ArrayExpr) (interface{}, error) {
	res := make([]interface{}, 0, len(expr.List))
	for _, el := range expr.List {
		v, err := e.eval(el.Value)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

// generateFunc closes over the definition-time scope. The returned function
// has the uniform callable shape, so Call can invoke it like any Go func.
func (e *evaluator) generateFunc(body *js.BlockStmt, params js.Params) func(...interface{}) (interface{}, error) {
	defScope := e.sc
	return func(actual ...interface{}) (interface{}, error) {
		inner := &evaluator{c: e.c, sc: childOf(e.c.logger, defScope)}
		if len(actual) > len(params.List) {
			return nil, WrongNumberOfArgsError{
				Message: fmt.Sprintf("%#v takes %v args, got %v", body, len(params.List), len(actual)),
				Item:    body,
				Got:     len(actual),
				Want:    len(params.List),
			}
		}
		for idx, el := range params.List {
			var value interface{}
			if idx < len(actual) {
				value = actual[idx]
			} else if el.Default != nil {
				var err error
				if value, err = inner.eval(el.Default); err != nil {
					return nil, err
				}
			}
			bind, ok := el.Binding.(*js.Var)
			if !ok {
				return nil, NotImplementedError{
					Message: fmt.Sprintf("binding element %#v not implemented", el),
					Item:    el,
				}
			}
			if err := inner.sc.Add(string(bind.Data), value); err != nil {
				return nil, err
			}
		}
		return inner.evalBlock(body)
	}
}

func memberKey(y interface{}) string {
	switch v := y.(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		if v == float64(int(v)) {
			return strconv.Itoa(int(v))
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	}
	return fmt.Sprint(y)
}
