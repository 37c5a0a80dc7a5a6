package expr

import (
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/scope"
)

// Dep is a precise dependency: the one (object, property) pair a tracked
// evaluation's result was read from.
type Dep struct {
	Object *reactive.Object
	Key    string
}

// EvalTracked evaluates inside a capture window and classifies the result.
// The last captured access is the candidate leaf; it only counts as the
// dependency when its live value still equals the result, which guards
// against trailing speculative captures from unrelated sub-expressions.
// A nil Dep means the caller must fall back to polling.
func (cd *Compiled) EvalTracked(sc *scope.S) (interface{}, *Dep, error) {
	cd.c.store.BeginRecording()
	val, err := cd.Eval(sc)
	seq := cd.c.store.EndRecording()
	if err != nil {
		return nil, nil, err
	}
	if len(seq) == 0 {
		return val, nil, nil
	}
	last := seq[len(seq)-1]
	if leafEqual(last.Object.Peek(last.Key), cd.c.store.Unwrap(val)) {
		return val, &Dep{Object: last.Object, Key: last.Key}, nil
	}
	return val, nil, nil
}

func leafEqual(x, y interface{}) bool {
	if x == nil && y == nil {
		return true
	}
	return StrictEq(x, y)
}
