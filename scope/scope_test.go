package scope

import (
	"testing"
)

func TestAddAndResolve(t *testing.T) {
	s := New(nil, map[string]interface{}{"a": 1})
	if err := s.Add("b", 2); err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]interface{}{"a": 1, "b": 2} {
		b, err := s.Resolve(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if b.Value != want {
			t.Errorf("%q resolved to %v, want %v", name, b.Value, want)
		}
	}
}

func TestAddDuplicate(t *testing.T) {
	s := New(nil, nil)
	if err := s.Add("x", 1); err != nil {
		t.Fatal(err)
	}
	err := s.Add("x", 2)
	if _, ok := err.(DuplicateBindingError); !ok {
		t.Fatalf("got %#v, want DuplicateBindingError", err)
	}
	b, err := s.Resolve("x")
	if err != nil {
		t.Fatal(err)
	}
	if b.Value != 1 {
		t.Errorf("conflicting add replaced the binding: got %v", b.Value)
	}
}

func TestResolveNotFound(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Resolve("missing")
	if _, ok := err.(BindingNotFoundError); !ok {
		t.Fatalf("got %#v, want BindingNotFoundError", err)
	}
}

func TestInheritConflictFirstSeenWins(t *testing.T) {
	first := New(nil, map[string]interface{}{"x": 1})
	second := New(nil, map[string]interface{}{"x": 2})
	child := New(nil, nil)
	child.Inherit(first)
	child.Inherit(second)
	b, err := child.Resolve("x")
	if err != nil {
		t.Fatal(err)
	}
	if b.Value != 1 {
		t.Errorf("resolution yielded %v, want the first-registered 1", b.Value)
	}
	flat := child.Flatten()
	if flat["x"].Value != 1 {
		t.Errorf("flatten yielded %v, want 1", flat["x"].Value)
	}
}

func TestFlattenOwnPrecedence(t *testing.T) {
	parent := New(nil, map[string]interface{}{"x": "inherited", "y": "only"})
	child := New(nil, map[string]interface{}{"x": "own"})
	child.Inherit(parent)
	flat := child.Flatten()
	if flat["x"].Value != "own" {
		t.Errorf("own binding did not take precedence: %v", flat["x"].Value)
	}
	if flat["y"].Value != "only" {
		t.Errorf("inherited binding missing: %v", flat["y"])
	}
}

func TestHeaderSkipsProvided(t *testing.T) {
	parent := New(nil, map[string]interface{}{"a": 1, "b": 2})
	child := New(nil, map[string]interface{}{"c": 3})
	child.Inherit(parent)
	header := child.Header(map[string]bool{"a": true})
	names := map[string]bool{}
	for _, b := range header {
		if names[b.Name] {
			t.Errorf("%q declared twice", b.Name)
		}
		names[b.Name] = true
	}
	if names["a"] {
		t.Error("header re-declared a provided name")
	}
	if !names["b"] || !names["c"] {
		t.Errorf("header missing names: %v", names)
	}
}
