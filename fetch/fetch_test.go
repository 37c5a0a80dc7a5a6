package fetch

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsehtml/pulse/sched"
)

// tickUntil drives the loop from the test goroutine until cond holds, since
// fetch callbacks only ever run as posted tasks.
func tickUntil(t *testing.T, loop *sched.Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		loop.Tick()
		time.Sleep(time.Millisecond)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"alice","age":30}`))
	}))
	defer srv.Close()
	loop := sched.NewLoop(nil)
	c := NewClient(loop, nil)
	var out map[string]interface{}
	done := false
	c.GetJSON(srv.URL, &out, []func(*Response){func(*Response) { done = true }},
		[]func(error){func(err error) { t.Errorf("unexpected error: %v", err) }})
	tickUntil(t, loop, func() bool { return done })
	if out["name"] != "alice" || out["age"] != 30.0 {
		t.Errorf("decoded %#v", out)
	}
}

func TestNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	loop := sched.NewLoop(nil)
	c := NewClient(loop, nil)
	var got error
	c.Do(http.MethodGet, srv.URL, nil,
		[]func(*Response){func(*Response) { t.Error("success callback ran") }},
		[]func(error){func(err error) { got = err }})
	tickUntil(t, loop, func() bool { return got != nil })
	statusErr, ok := got.(StatusError)
	if !ok {
		t.Fatalf("got %#v, want StatusError", got)
	}
	if statusErr.Status != http.StatusNotFound {
		t.Errorf("status %v, want 404", statusErr.Status)
	}
}

func TestPostBody(t *testing.T) {
	var gotBody []byte
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()
	loop := sched.NewLoop(nil)
	c := NewClient(loop, nil)
	var resp *Response
	c.Do(http.MethodPost, srv.URL, []byte(`{"x":1}`),
		[]func(*Response){func(r *Response) { resp = r }}, nil)
	tickUntil(t, loop, func() bool { return resp != nil })
	if string(gotBody) != `{"x":1}` {
		t.Errorf("server saw body %q", gotBody)
	}
	if gotType != "application/json" {
		t.Errorf("server saw content type %q", gotType)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("response body %q", resp.Body)
	}
}

func TestBadJSONCallsErrorCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()
	loop := sched.NewLoop(nil)
	c := NewClient(loop, nil)
	var out map[string]interface{}
	var got error
	c.GetJSON(srv.URL, &out,
		[]func(*Response){func(*Response) { t.Error("success callback ran on bad JSON") }},
		[]func(error){func(err error) { got = err }})
	tickUntil(t, loop, func() bool { return got != nil })
}
