package reactive

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Object is the observable wrapper over one raw map or slice. All reads and
// writes of managed data go through Get and Set.
type Object struct {
	store     *Store
	raw       interface{}
	listeners []*listener
}

// Names that only coerce or measure a value. Reading them never constitutes
// a data dependency.
var coercionNames = map[string]bool{
	"valueOf":  true,
	"toString": true,
	"length":   true,
}

// Raw returns the wrapped data itself, not a copy.
func (o *Object) Raw() interface{} {
	return o.raw
}

func (o *Object) IsArray() bool {
	_, ok := o.raw.([]interface{})
	return ok
}

// Len returns the element count for array-backed objects, 0 otherwise.
func (o *Object) Len() int {
	if sl, ok := o.raw.([]interface{}); ok {
		return len(sl)
	}
	return 0
}

// Keys returns the readable keys: map keys, or decimal indices for arrays.
func (o *Object) Keys() []string {
	switch v := o.raw.(type) {
	case map[string]interface{}:
		res := make([]string, 0, len(v))
		for k := range v {
			res = append(res, k)
		}
		return res
	case []interface{}:
		res := make([]string, len(v))
		for i := range v {
			res[i] = strconv.Itoa(i)
		}
		return res
	}
	return nil
}

func (o *Object) lookup(key string) interface{} {
	switch v := o.raw.(type) {
	case map[string]interface{}:
		return v[key]
	case []interface{}:
		if key == "length" {
			return len(v)
		}
		if idx, err := strconv.Atoi(key); err == nil && idx >= 0 && idx < len(v) {
			return v[idx]
		}
		return nil
	}
	return nil
}

// Get reads one property. Inside a recording window the access is captured,
// nested maps and slices come back wrapped, and a primitive result closes
// the window as the found leaf. Coercion names and callables are returned
// as they are and never captured.
func (o *Object) Get(key string) interface{} {
	if coercionNames[key] {
		return o.lookup(key)
	}
	raw := o.lookup(key)
	if isCallable(raw) {
		return raw
	}
	o.store.record(o, key)
	switch raw.(type) {
	case map[string]interface{}, []interface{}:
		return o.store.manage(raw, o.seedFor(key))
	case *Object:
		return raw
	}
	o.store.foundLeaf()
	return raw
}

// Peek reads one property without recording and without wrapping.
func (o *Object) Peek(key string) interface{} {
	return o.store.Unwrap(o.lookup(key))
}

// seedFor hands a newly wrapped child the listeners its parent held under
// the child's key, so deep mutations notify even if the child was never
// directly observed before.
func (o *Object) seedFor(key string) []*listener {
	var seed []*listener
	for _, l := range o.listeners {
		if !l.anyKey && l.key == key {
			seed = append(seed, &listener{anyKey: true, fn: l.fn, gone: l.gone})
		}
	}
	return seed
}

// Set applies the raw mutation and then notifies listeners. Stored values
// are always unwrapped first so the raw graph never holds wrappers.
func (o *Object) Set(key string, value interface{}) error {
	value = o.store.Unwrap(value)
	switch v := o.raw.(type) {
	case map[string]interface{}:
		v[key] = value
	case []interface{}:
		if err := o.setIndexed(v, key, value); err != nil {
			return err
		}
	default:
		return NotManageableError{
			Message: fmt.Sprintf("cannot set %q on %#v", key, o.raw),
			Item:    o.raw,
		}
	}
	o.notify(key, value)
	return nil
}

func (o *Object) setIndexed(sl []interface{}, key string, value interface{}) error {
	if key == "length" {
		n, ok := asIndex(value)
		if !ok {
			return NotManageableError{
				Message: fmt.Sprintf("array length must be a non-negative integer, got %#v", value),
				Item:    value,
			}
		}
		oldID, _ := identityOf(o.raw)
		for len(sl) < n {
			sl = append(sl, nil)
		}
		o.raw = sl[:n]
		o.store.rebind(oldID, o)
		return nil
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 {
		return NotManageableError{
			Message: fmt.Sprintf("cannot set %q on an array", key),
			Item:    key,
		}
	}
	if idx < len(sl) {
		sl[idx] = value
		return nil
	}
	oldID, _ := identityOf(o.raw)
	for len(sl) < idx {
		sl = append(sl, nil)
	}
	o.raw = append(sl, value)
	o.store.rebind(oldID, o)
	return nil
}

func (o *Object) notify(key string, value interface{}) {
	snapshot := make([]*listener, len(o.listeners))
	copy(snapshot, o.listeners)
	for _, l := range snapshot {
		if *l.gone || l.anyKey || l.key != key {
			continue
		}
		o.call(l, key, value)
	}
	for _, l := range snapshot {
		if *l.gone || !l.anyKey {
			continue
		}
		o.call(l, key, value)
	}
}

func (o *Object) call(l *listener, key string, value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			o.store.logger.Error("listener failed",
				zap.String("key", key),
				zap.Any("panic", r))
		}
	}()
	l.fn(key, value)
}

func asIndex(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 && v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}
