package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"heartbench/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local bench network only
	},
}

// WebServer exposes the feedback ring over HTTP: a JSON snapshot endpoint
// and a websocket that pushes new samples as they arrive.
type WebServer struct {
	ring *telemetry.Ring
	poll time.Duration
}

// NewWebServer creates a server reading from the given ring. poll is the
// websocket push interval.
func NewWebServer(ring *telemetry.Ring, poll time.Duration) *WebServer {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &WebServer{ring: ring, poll: poll}
}

// Handler returns the server's route table.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/feedback", s.handleSnapshot)
	mux.HandleFunc("/api/feedback/last", s.handleLast)
	mux.HandleFunc("/ws/feedback", s.handleWS)
	return mux
}

// ListenAndServe runs the web API on addr.
func (s *WebServer) ListenAndServe(addr string) error {
	log.Printf("monitor: web server listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *WebServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.ring.Snapshot()); err != nil {
		log.Printf("monitor: json encode error: %v", err)
	}
}

func (s *WebServer) handleLast(w http.ResponseWriter, r *http.Request) {
	sample, ok := s.ring.Last()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sample); err != nil {
		log.Printf("monitor: json encode error: %v", err)
	}
}

// handleWS upgrades to a websocket and pushes every new sample until the
// client disconnects. Each message is a JSON array of samples newer than
// the last push.
func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	var lastTick uint32
	var seen bool

	for range ticker.C {
		var fresh []telemetry.Sample
		if seen {
			fresh = s.ring.Since(lastTick)
		} else {
			fresh = s.ring.Snapshot()
		}
		if len(fresh) == 0 {
			continue
		}
		if err := conn.WriteJSON(fresh); err != nil {
			return
		}
		lastTick = fresh[len(fresh)-1].Tick
		seen = true
	}
}
