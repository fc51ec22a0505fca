// Package remote exposes dictation control over local HTTP and a WebSocket
// that also streams lifecycle events.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hark/dictation"
	"hark/log"
)

const trigger = "remote"

// Control is the part of *dictation.Orchestrator the server drives.
type Control interface {
	Status() dictation.Status
	Start(trigger string) bool
	Stop(trigger string) bool
	Toggle(trigger string) bool
	Cancel(trigger string) bool
	ToggleMute() bool
	Muted() bool
	Bus() *dictation.Bus
}

// Command actions accepted on the WebSocket.
const (
	ActionStatus     = "status"
	ActionStart      = "start"
	ActionStop       = "stop"
	ActionToggle     = "toggle"
	ActionCancel     = "cancel"
	ActionMuteToggle = "mute.toggle"
	ActionMuteGet    = "mute.get"
)

type Command struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
}

type Response struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type StatusData struct {
	State                    string   `json:"state"`
	IsRecording              bool     `json:"isRecording"`
	IsTranscribing           bool     `json:"isTranscribing"`
	RecordingDurationSeconds *float64 `json:"recordingDurationSeconds,omitempty"`
	Muted                    bool     `json:"muted"`
}

type MuteData struct {
	Muted bool `json:"muted"`
}

type EventMessage struct {
	Type  string          `json:"type"`
	Event dictation.Event `json:"event"`
}

var errUnknownCommand = errors.New("unknown action")

type Server struct {
	ctl      Control
	addr     string
	upgrader websocket.Upgrader
	http     *http.Server

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(addr string, ctl Control) *Server {
	s := &Server{ctl: ctl, addr: addr, clients: make(map[*client]struct{})}
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{Type: "response", Success: true})
	})
	mux.HandleFunc("GET /status", s.route(ActionStatus))
	mux.HandleFunc("POST /start", s.route(ActionStart))
	mux.HandleFunc("POST /stop", s.route(ActionStop))
	mux.HandleFunc("POST /toggle", s.route(ActionToggle))
	mux.HandleFunc("POST /cancel", s.route(ActionCancel))
	mux.HandleFunc("POST /mute/toggle", s.route(ActionMuteToggle))
	mux.HandleFunc("GET /mute", s.route(ActionMuteGet))
	mux.HandleFunc("GET /ws", s.serveWS)
	return mux
}

func (s *Server) route(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := s.Exec(Command{ID: r.Header.Get("X-Request-Id"), Action: action})
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("remote: write response: %v", err)
	}
}

func statusData(st dictation.Status) StatusData {
	return StatusData{
		State:                    st.State.String(),
		IsRecording:              st.IsRecording,
		IsTranscribing:           st.IsTranscribing,
		RecordingDurationSeconds: st.RecordingDuration,
		Muted:                    st.Muted,
	}
}

// Exec runs one command. Transition commands succeed only when the
// transition actually happened.
func (s *Server) Exec(cmd Command) Response {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	resp := Response{Type: "response", ID: cmd.ID}
	switch cmd.Action {
	case ActionStatus:
		resp.Success, resp.Data = true, statusData(s.ctl.Status())
	case ActionStart:
		resp.Success = s.ctl.Start(trigger)
	case ActionStop:
		resp.Success = s.ctl.Stop(trigger)
	case ActionToggle:
		resp.Success = s.ctl.Toggle(trigger)
	case ActionCancel:
		resp.Success = s.ctl.Cancel(trigger)
	case ActionMuteToggle:
		resp.Success, resp.Data = true, MuteData{Muted: s.ctl.ToggleMute()}
	case ActionMuteGet:
		resp.Success, resp.Data = true, MuteData{Muted: s.ctl.Muted()}
	default:
		resp.Error = fmt.Sprintf("%v: %q", errUnknownCommand, cmd.Action)
		return resp
	}
	if !resp.Success {
		resp.Error = fmt.Sprintf("%s not possible while %s", cmd.Action, s.ctl.Status().State)
	}
	log.Infof("remote: %s -> %v", cmd.Action, resp.Success)
	return resp
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

func (s *Server) track(c *client, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.clients[c] = struct{}{}
	} else {
		delete(s.clients, c)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("remote: websocket upgrade: %v", err)
		return
	}
	c := &client{conn: conn}
	s.track(c, true)

	events, unsubscribe := s.ctl.Bus().Subscribe(64)
	done := make(chan struct{})
	defer func() {
		close(done)
		unsubscribe()
		s.track(c, false)
		conn.Close()
	}()

	go func() {
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := c.send(EventMessage{Type: "event", Event: e}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("remote: websocket read: %v", err)
			}
			return
		}
		if err := c.send(s.Exec(cmd)); err != nil {
			return
		}
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("remote: listen %s: %w", s.addr, err)
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("remote: serve: %v", err)
		}
	}()
	log.Infof("remote: listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Shutdown stops accepting requests and closes open WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	return err
}
