package scope

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Binding is a named value made visible to expressions. It never changes
// after creation; mutable state lives inside the value, not the binding.
type Binding struct {
	Name  string
	Value interface{}
}

type DuplicateBindingError struct {
	Message string
	Name    string
}

func (d DuplicateBindingError) Error() string {
	return d.Message
}

type BindingNotFoundError struct {
	Message string
	Name    string
}

func (b BindingNotFoundError) Error() string {
	return b.Message
}

// S is a named-value environment. It owns its bindings and holds non-owning
// references to inherited environments, typically those of ancestor elements.
type S struct {
	logger    *zap.Logger
	names     []string
	bindings  map[string]*Binding
	inherited []*S
}

func New(logger *zap.Logger, initial map[string]interface{}) *S {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &S{
		logger:   logger,
		bindings: map[string]*Binding{},
	}
	for name, value := range initial {
		s.bindings[name] = &Binding{Name: name, Value: value}
		s.names = append(s.names, name)
	}
	return s
}

// Add declares a new binding. A name already declared in this environment is
// a conflict: it is logged and reported, the existing binding stays.
func (s *S) Add(name string, value interface{}) error {
	if _, found := s.bindings[name]; found {
		err := DuplicateBindingError{
			Message: fmt.Sprintf("%q is already bound", name),
			Name:    name,
		}
		s.logger.Warn("binding conflict", zap.String("name", name))
		return err
	}
	s.bindings[name] = &Binding{Name: name, Value: value}
	s.names = append(s.names, name)
	return nil
}

// Inherit makes every binding of o visible here, behind this environment's
// own bindings. The flattened view is re-validated immediately; conflicts
// are logged but do not abort the inheritance.
func (s *S) Inherit(o *S) {
	s.inherited = append(s.inherited, o)
	s.Flatten()
}

// Resolve finds name in this environment or, depth first in registration
// order, in an inherited one.
func (s *S) Resolve(name string) (*Binding, error) {
	if b, found := s.bindings[name]; found {
		return b, nil
	}
	for _, in := range s.inherited {
		if b, err := in.Resolve(name); err == nil {
			return b, nil
		}
	}
	return nil, BindingNotFoundError{
		Message: fmt.Sprintf("%q is not bound", name),
		Name:    name,
	}
}

// Flatten returns every reachable binding, keyed by name. Own bindings win
// over inherited ones; among the rest the first-seen binding wins. Two
// bindings sharing a name with non-identical values is a conflict, logged
// and resolved in favor of the earlier one.
func (s *S) Flatten() map[string]*Binding {
	res := map[string]*Binding{}
	s.flattenInto(res)
	return res
}

func (s *S) flattenInto(res map[string]*Binding) {
	for _, name := range s.names {
		b := s.bindings[name]
		if prev, found := res[name]; found {
			if !identical(prev.Value, b.Value) {
				s.logger.Warn("binding conflict across scopes, keeping first",
					zap.String("name", name))
			}
			continue
		}
		res[name] = b
	}
	for _, in := range s.inherited {
		in.flattenInto(res)
	}
}

// identical reports reference identity for reference kinds and plain
// equality for everything comparable.
func identical(x, y interface{}) bool {
	refX := reflect.ValueOf(x)
	refY := reflect.ValueOf(y)
	if refX.Kind() != refY.Kind() {
		return false
	}
	switch refX.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Ptr, reflect.Chan:
		return refX.Pointer() == refY.Pointer()
	case reflect.Invalid:
		return true
	}
	if !refX.Comparable() {
		return false
	}
	return x == y
}

// Header returns the bindings an evaluated expression needs declared, in
// stable order, skipping any name in provided. Composed environments use
// provided to avoid re-declaring a name an ancestor header already covers.
func (s *S) Header(provided map[string]bool) []*Binding {
	flat := s.Flatten()
	seen := map[string]bool{}
	var res []*Binding
	s.headerNames(flat, provided, seen, &res)
	return res
}

func (s *S) headerNames(flat map[string]*Binding, provided, seen map[string]bool, res *[]*Binding) {
	for _, name := range s.names {
		if provided[name] || seen[name] {
			continue
		}
		seen[name] = true
		*res = append(*res, flat[name])
	}
	for _, in := range s.inherited {
		in.headerNames(flat, provided, seen, res)
	}
}
