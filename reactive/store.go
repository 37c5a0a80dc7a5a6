// Package reactive wraps plain data in observable objects. A wrapped object
// intercepts reads to discover what an expression depends on, and writes to
// notify registered listeners.
package reactive

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Disposer removes exactly the registration that returned it.
type Disposer func()

// Handler observes one property write.
type Handler func(key string, value interface{})

type listener struct {
	key    string
	anyKey bool
	fn     Handler
	gone   *bool
}

// Capture is one recorded property access: the wrapper it went through and
// the key that was read.
type Capture struct {
	Object *Object
	Key    string
}

type recorder struct {
	open bool
	done bool
	seq  []Capture
}

type NotManageableError struct {
	Message string
	Item    interface{}
}

func (n NotManageableError) Error() string {
	return n.Message
}

// Store tracks the identity mapping between raw data and its wrapped form,
// and owns the single capture-recording window.
type Store struct {
	logger   *zap.Logger
	wrappers map[uintptr]*Object
	rec      recorder
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:   logger,
		wrappers: map[uintptr]*Object{},
	}
}

// BeginRecording opens the capture window. Only one window may be open;
// opening a second is a protocol violation that resets the recorder.
func (s *Store) BeginRecording() {
	if s.rec.open {
		s.logger.Error("capture window opened while one is already open, resetting")
	}
	s.rec = recorder{open: true}
}

// EndRecording closes the window and returns the accesses recorded in it.
func (s *Store) EndRecording() []Capture {
	seq := s.rec.seq
	s.rec = recorder{}
	return seq
}

func (s *Store) record(o *Object, key string) {
	if !s.rec.open || s.rec.done {
		return
	}
	s.rec.seq = append(s.rec.seq, Capture{Object: o, Key: key})
}

// A primitive leaf read closes the window: later reads belong to other
// sub-expressions and must not displace the found dependency.
func (s *Store) foundLeaf() {
	if s.rec.open {
		s.rec.done = true
	}
}

// Manage wraps raw in an observable object. Wrapping is idempotent: an
// already wrapped value returns its existing wrapper, and values that are
// not maps or slices are returned unchanged.
func (s *Store) Manage(raw interface{}) interface{} {
	return s.manage(raw, nil)
}

func (s *Store) manage(raw interface{}, seed []*listener) interface{} {
	if o, ok := raw.(*Object); ok {
		return o
	}
	id, ok := identityOf(raw)
	if !ok {
		return raw
	}
	if o, found := s.wrappers[id]; found {
		return o
	}
	o := &Object{store: s, raw: raw}
	o.listeners = append(o.listeners, seed...)
	s.wrappers[id] = o
	return o
}

// Unwrap returns the original data behind a wrapper, or value unchanged if
// it is not one.
func (s *Store) Unwrap(value interface{}) interface{} {
	if o, ok := value.(*Object); ok {
		return o.raw
	}
	return value
}

// RegisterListener subscribes fn to every property write on obj. The
// returned disposer removes this one registration.
func (s *Store) RegisterListener(obj interface{}, fn Handler) (Disposer, error) {
	return s.register(obj, &listener{anyKey: true, fn: fn})
}

// RegisterKeyListener subscribes fn to writes of one property of obj.
func (s *Store) RegisterKeyListener(obj interface{}, key string, fn Handler) (Disposer, error) {
	return s.register(obj, &listener{key: key, fn: fn})
}

func (s *Store) register(obj interface{}, l *listener) (Disposer, error) {
	managed := s.manage(obj, nil)
	o, ok := managed.(*Object)
	if !ok {
		return nil, NotManageableError{
			Message: fmt.Sprintf("%#v cannot hold listeners", obj),
			Item:    obj,
		}
	}
	gone := new(bool)
	l.gone = gone
	o.listeners = append(o.listeners, l)
	return func() {
		*gone = true
		for i, cand := range o.listeners {
			if cand == l {
				o.listeners = append(o.listeners[:i], o.listeners[i+1:]...)
				break
			}
		}
	}, nil
}

// Notify runs the listeners for one write: key-specific ones first, then
// object-wide ones, each in registration order. A listener failure is
// logged and does not stop the rest.
func (s *Store) Notify(obj interface{}, key string, value interface{}) {
	o, ok := s.manage(obj, nil).(*Object)
	if !ok {
		return
	}
	o.notify(key, value)
}

// identityOf keys raw data by the address of its backing storage, so the
// same map or slice always finds the same wrapper.
func identityOf(raw interface{}) (uintptr, bool) {
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		return v.Pointer(), true
	}
	return 0, false
}

func (s *Store) rebind(oldID uintptr, o *Object) {
	delete(s.wrappers, oldID)
	if id, ok := identityOf(o.raw); ok {
		s.wrappers[id] = o
	}
}
