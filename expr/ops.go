package expr

import (
	"fmt"
	"reflect"

	"github.com/tdewolff/parse/v2/js"

	"github.com/pulsehtml/pulse/reactive"
)

var (
	ifaceType = reflect.TypeOf((*interface{})(nil)).Elem()
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

func (e *evaluator) evalBinary(expr *js.BinaryExpr) (interface{}, error) {
	switch expr.Op {
	case js.EqToken:
		return e.evalAssignment(expr)
	case js.AndToken:
		x, err := e.eval(expr.X)
		if err != nil {
			return nil, err
		}
		if !Truth(x) {
			return x, nil
		}
		return e.eval(expr.Y)
	case js.OrToken:
		x, err := e.eval(expr.X)
		if err != nil {
			return nil, err
		}
		if Truth(x) {
			return x, nil
		}
		return e.eval(expr.Y)
	}
	x, err := e.eval(expr.X)
	if err != nil {
		return nil, err
	}
	y, err := e.eval(expr.Y)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case js.EqEqToken:
		return LooseEq(x, y), nil
	case js.NotEqToken:
		return !LooseEq(x, y), nil
	case js.EqEqEqToken:
		return StrictEq(x, y), nil
	case js.NotEqEqToken:
		return !StrictEq(x, y), nil
	case js.AddToken:
		return Add(x, y)
	case js.SubToken:
		return Sub(x, y)
	case js.MulToken:
		return Mul(x, y)
	case js.DivToken:
		return Div(x, y)
	case js.ModToken:
		return Mod(x, y)
	case js.LtToken, js.GtToken, js.LtEqToken, js.GtEqToken:
		return Compare(expr.Op, x, y)
	}
	return nil, NotImplementedError{
		Message: fmt.Sprintf("binary expression %#v not implemented", expr),
		Item:    expr,
	}
}

// Assignments target data leaves. Scope bindings are immutable, so a bare
// identifier on the left is an error; writes go through an object, and a
// managed object's Set notifies its listeners as part of the assignment.
func (e *evaluator) evalAssignment(expr *js.BinaryExpr) (interface{}, error) {
	y, err := e.eval(expr.Y)
	if err != nil {
		return nil, err
	}
	switch v := expr.X.(type) {
	case *js.Var:
		return nil, NotAssignableError{
			Message: fmt.Sprintf("%q is a binding and cannot be assigned", string(v.Data)),
			Item:    string(v.Data),
		}
	case *js.DotExpr:
		obj, err := e.eval(v.X)
		if err != nil {
			return nil, err
		}
		return y, e.assign(obj, string(v.Y.Data), y)
	case *js.IndexExpr:
		obj, err := e.eval(v.X)
		if err != nil {
			return nil, err
		}
		idx, err := e.eval(v.Y)
		if err != nil {
			return nil, err
		}
		return y, e.assign(obj, memberKey(idx), y)
	}
	return nil, NotAssignableError{
		Message: fmt.Sprintf("cannot assign to %#v", expr.X),
		Item:    expr.X,
	}
}

func (e *evaluator) assign(obj interface{}, key string, value interface{}) error {
	switch v := obj.(type) {
	case *reactive.Object:
		return v.Set(key, value)
	case map[string]interface{}:
		v[key] = value
		return nil
	}
	return NotObjectError{
		Message: fmt.Sprintf("%#v is not an object", obj),
		Item:    obj,
	}
}

// Call invokes a Go function value with iArgs. It accepts any func whose
// last two results are (interface{}, error), matching the shape generated
// functions and registered globals use.
func Call(callable interface{}, iArgs []interface{}) (interface{}, error) {
	args := make([]reflect.Value, len(iArgs))
	for idx := range args {
		if iArgs[idx] == nil {
			args[idx] = reflect.New(ifaceType).Elem()
		} else {
			args[idx] = reflect.ValueOf(iArgs[idx])
		}
	}
	refCallable := reflect.ValueOf(callable)
	if refCallable.Kind() != reflect.Func {
		return nil, NotCallableError{
			Message: fmt.Sprintf("%#v is not callable", callable),
			Item:    callable,
		}
	}
	refType := reflect.TypeOf(callable)
	if !refType.IsVariadic() && refType.NumIn() != len(args) {
		return nil, WrongNumberOfArgsError{
			Message: fmt.Sprintf("%#v takes %v args, got %v", callable, refType.NumIn(), len(args)),
			Item:    callable,
			Got:     len(args),
			Want:    refType.NumIn(),
		}
	}
	if refType.NumOut() != 2 {
		return nil, NoReturnValueError{
			Message: fmt.Sprintf("%#v doesn't return exactly two values", callable),
			Item:    callable,
		}
	}
	if refType.Out(0) != ifaceType {
		return nil, WrongReturnValueError{
			Message: fmt.Sprintf("%#v doesn't return an empty interface as first value", callable),
			Item:    callable,
			Got:     refType.Out(0),
			Want:    ifaceType,
		}
	}
	if refType.Out(1) != errorType {
		return nil, WrongReturnValueError{
			Message: fmt.Sprintf("%#v doesn't return an error as second value", callable),
			Item:    callable,
			Got:     refType.Out(1),
			Want:    errorType,
		}
	}
	var res interface{}
	var err error
	out := refCallable.Call(args)
	if !out[0].IsNil() {
		res = out[0].Interface()
	}
	if !out[1].IsNil() {
		err = out[1].Interface().(error)
	}
	return res, err
}

// Truth follows host-language truthiness: zero numbers, empty strings,
// false and nil are false, everything else is true.
func Truth(iVal interface{}) bool {
	if iVal == nil {
		return false
	}
	switch val := iVal.(type) {
	case bool:
		return val
	case int:
		return val != 0
	case float64:
		return val != 0.0
	case string:
		return val != ""
	case *reactive.Object:
		return true
	default:
		refVal := reflect.ValueOf(iVal)
		switch refVal.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface,
			reflect.Map, reflect.Ptr, reflect.Slice:
			return !refVal.IsNil()
		}
	}
	return true
}

func LooseEq(x, y interface{}) bool {
	return fmt.Sprint(x) == fmt.Sprint(y)
}

func StrictEq(x, y interface{}) bool {
	refX := reflect.ValueOf(x)
	refY := reflect.ValueOf(y)
	if refX.Kind() != refY.Kind() {
		return false
	}
	if refX.Kind() != reflect.Invalid && refX.Type() != refY.Type() {
		return false
	}
	switch refX.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Bool:
		return refX.Bool() == refY.Bool()
	case reflect.Int:
		return refX.Int() == refY.Int()
	case reflect.Float64:
		return refX.Float() == refY.Float()
	case reflect.Ptr, reflect.Func, reflect.Chan, reflect.Map, reflect.Slice:
		return refX.Pointer() == refY.Pointer()
	}
	return reflect.DeepEqual(x, y)
}

func Add(x, y interface{}) (interface{}, error) {
	switch xv := x.(type) {
	case int:
		switch yv := y.(type) {
		case int:
			return xv + yv, nil
		case float64:
			return float64(xv) + yv, nil
		case string:
			return fmt.Sprint(xv) + yv, nil
		}
	case float64:
		switch yv := y.(type) {
		case int:
			return xv + float64(yv), nil
		case float64:
			return xv + yv, nil
		case string:
			return fmt.Sprint(xv) + yv, nil
		}
	case string:
		switch yv := y.(type) {
		case int, float64, string, bool:
			return xv + fmt.Sprint(yv), nil
		}
	case []interface{}:
		switch yv := y.(type) {
		case []interface{}:
			res := make([]interface{}, len(xv)+len(yv))
			copy(res, xv)
			copy(res[len(xv):], yv)
			return res, nil
		}
	}
	return nil, BinaryOpNotImplementedError{
		Message: fmt.Sprintf("add of %#v and %#v not implemented", x, y),
		X:       x,
		Y:       y,
	}
}

func Sub(x, y interface{}) (interface{}, error) {
	xf, yf, sameInt, err := numericPair("sub", x, y)
	if err != nil {
		return nil, err
	}
	if sameInt {
		return int(xf) - int(yf), nil
	}
	return xf - yf, nil
}

func Mul(x, y interface{}) (interface{}, error) {
	xf, yf, sameInt, err := numericPair("mul", x, y)
	if err != nil {
		return nil, err
	}
	if sameInt {
		return int(xf) * int(yf), nil
	}
	return xf * yf, nil
}

func Div(x, y interface{}) (interface{}, error) {
	xf, yf, sameInt, err := numericPair("div", x, y)
	if err != nil {
		return nil, err
	}
	if sameInt {
		if int(yf) == 0 {
			return nil, DivisionByZeroError{
				Message: fmt.Sprintf("division of %#v by zero", x),
				X:       x,
				Y:       y,
			}
		}
		return int(xf) / int(yf), nil
	}
	return xf / yf, nil
}

func Mod(x, y interface{}) (interface{}, error) {
	xf, yf, sameInt, err := numericPair("mod", x, y)
	if err != nil {
		return nil, err
	}
	if sameInt {
		if int(yf) == 0 {
			return nil, DivisionByZeroError{
				Message: fmt.Sprintf("modulo of %#v by zero", x),
				X:       x,
				Y:       y,
			}
		}
		return int(xf) % int(yf), nil
	}
	return nil, BinaryOpNotImplementedError{
		Message: fmt.Sprintf("mod of %#v and %#v not implemented", x, y),
		X:       x,
		Y:       y,
	}
}

func Compare(op js.TokenType, x, y interface{}) (interface{}, error) {
	if xs, ok := x.(string); ok {
		if ys, ok := y.(string); ok {
			switch op {
			case js.LtToken:
				return xs < ys, nil
			case js.GtToken:
				return xs > ys, nil
			case js.LtEqToken:
				return xs <= ys, nil
			case js.GtEqToken:
				return xs >= ys, nil
			}
		}
	}
	xf, yf, _, err := numericPair("compare", x, y)
	if err != nil {
		return nil, err
	}
	switch op {
	case js.LtToken:
		return xf < yf, nil
	case js.GtToken:
		return xf > yf, nil
	case js.LtEqToken:
		return xf <= yf, nil
	case js.GtEqToken:
		return xf >= yf, nil
	}
	return nil, BinaryOpNotImplementedError{
		Message: fmt.Sprintf("comparison %v of %#v and %#v not implemented", op, x, y),
		X:       x,
		Y:       y,
	}
}

func numericPair(op string, x, y interface{}) (xf, yf float64, sameInt bool, err error) {
	xi, xIsInt := x.(int)
	yi, yIsInt := y.(int)
	if xIsInt && yIsInt {
		return float64(xi), float64(yi), true, nil
	}
	xf, xOK := toFloat(x)
	yf, yOK := toFloat(y)
	if !xOK || !yOK {
		return 0, 0, false, BinaryOpNotImplementedError{
			Message: fmt.Sprintf("%s of %#v and %#v not implemented", op, x, y),
			X:       x,
			Y:       y,
		}
	}
	return xf, yf, false, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
