package live

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/sched"
)

func newTestServer(t *testing.T, body string, model interface{}) (*Server, *dom.Document, *sched.Loop, *httptest.Server) {
	t.Helper()
	doc, err := dom.ParseString("<html><head></head><body>"+body+"</body></html>", nil)
	if err != nil {
		t.Fatal(err)
	}
	loop := sched.NewLoop(nil)
	s := NewServer(doc, model, loop, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, doc, loop, ts
}

func TestServePage(t *testing.T) {
	_, _, _, ts := newTestServer(t, `<div id="x">hello</div>`, nil)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	page, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), `<div id="x">hello</div>`) {
		t.Errorf("page misses the rendered document: %q", page)
	}
	if !strings.Contains(string(page), "new WebSocket") {
		t.Error("page misses the update script")
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("content type %q", got)
	}
}

func TestSnapshot(t *testing.T) {
	model := map[string]interface{}{"count": 3, "name": "alice"}
	_, _, _, ts := newTestServer(t, `<div></div>`, model)
	resp, err := http.Get(ts.URL + "/snapshot")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["count"] != 3.0 || out["name"] != "alice" {
		t.Errorf("snapshot decoded to %#v", out)
	}
}

func TestPushOnChange(t *testing.T) {
	_, doc, loop, ts := newTestServer(t, `<div id="x">before</div>`, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// The handshake response can land before the server registers the
	// connection; give it a moment.
	time.Sleep(100 * time.Millisecond)
	target := doc.Body().FirstChild.FirstChild
	target.Data = "after"
	loop.Tick()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(msg), `<div id="x">after</div>`) {
		t.Errorf("pushed render is %q", msg)
	}
}

func TestNoPushWithoutChange(t *testing.T) {
	_, _, loop, ts := newTestServer(t, `<div>same</div>`, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	time.Sleep(100 * time.Millisecond)
	loop.Tick()
	loop.Tick()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Errorf("received %q without a document change", msg)
	}
}
