// Package live serves a processed document over HTTP and pushes a fresh
// render to connected browsers whenever the rendered form changes. Change
// detection is a fingerprint compared once per loop tick, so any mutation
// the reactive engine applied to the tree reaches every viewer.
package live

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/sched"
)

type Server struct {
	doc    *dom.Document
	model  interface{}
	loop   *sched.Loop
	logger *zap.Logger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	conns       map[*websocket.Conn]bool
	fingerprint string
	html        string
}

func NewServer(doc *dom.Document, model interface{}, loop *sched.Loop, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		doc:    doc,
		model:  model,
		loop:   loop,
		logger: logger,
		conns:  map[*websocket.Conn]bool{},
	}
	s.refresh()
	loop.AddPoll(s.checkRender)
	return s
}

// Handler serves the page, the update socket and the raw data snapshot.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.servePage)
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/snapshot", s.serveSnapshot)
	return mux
}

// checkRender runs on the update loop: render, fingerprint, broadcast on
// change.
func (s *Server) checkRender() {
	if s.refresh() {
		s.broadcast()
	}
}

func (s *Server) refresh() bool {
	rendered, err := s.doc.Render()
	if err != nil {
		s.logger.Error("render failed", zap.Error(err))
		return false
	}
	sum := sha1.Sum([]byte(rendered))
	fp := hex.EncodeToString(sum[:])
	s.mu.Lock()
	defer s.mu.Unlock()
	if fp == s.fingerprint {
		return false
	}
	s.fingerprint = fp
	s.html = rendered
	return true
}

func (s *Server) broadcast() {
	s.mu.Lock()
	msg := s.html
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			s.logger.Warn("push failed, dropping connection", zap.Error(err))
			s.drop(conn)
		}
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page := s.html
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
	w.Write([]byte(clientScript))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

// serveSnapshot exports the raw data graph, deep-unwrapped to plain JSON.
func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=snapshot.json")
	if err := json.NewEncoder(w).Encode(reactive.CopyRaw(s.model)); err != nil {
		s.logger.Error("snapshot failed", zap.Error(err))
	}
}

var clientScript = `<script>
(function() {
	var proto = location.protocol === "https:" ? "wss:" : "ws:";
	var ws = new WebSocket(proto + "//" + location.host + "/ws");
	ws.onmessage = function(e) {
		var nd = document.open("text/html", "replace");
		nd.write(e.data);
		nd.close();
	};
	ws.onclose = function() {
		console.log("live socket closed");
	};
})();
</script>`
