package calc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/atmx/greeks-engine/internal/config"
	"github.com/atmx/greeks-engine/internal/metrics"
	"github.com/atmx/greeks-engine/internal/model"
)

// StreamMessage is a JSON frame sent to live calculator clients.
type StreamMessage struct {
	Type      string       `json:"type"` // "hello", "quote" or "error"
	SessionID string       `json:"session_id"`
	Seq       uint64       `json:"seq,omitempty"` // echoes the request frame number
	Quote     *model.Quote `json:"quote,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Stream serves the live calculator: each client frame is an OptionRequest
// and is answered with a full quote on the same connection. Sessions share
// nothing but the Service.
type Stream struct {
	svc          *Service
	pingInterval time.Duration
	readTimeout  time.Duration
	maxClients   int

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn → session id
	pending int
	closed  bool
}

// NewStream creates a live calculator bound to svc.
func NewStream(svc *Service, cfg config.StreamConfig) *Stream {
	def := config.Defaults().Stream
	if cfg.PingInterval.Duration <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout.Duration <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = def.MaxClients
	}
	return &Stream{
		svc:          svc,
		pingInterval: cfg.PingInterval.Duration,
		readTimeout:  cfg.ReadTimeout.Duration,
		maxClients:   cfg.MaxClients,
		clients:      make(map[*websocket.Conn]string),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // CORS is enforced by the router middleware.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (st *Stream) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !st.admit() {
		writeError(w, "too many live sessions", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		st.release()
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	id := uuid.New().String()
	if !st.register(conn, id) {
		conn.Close()
		return
	}
	slog.Info("live session opened", "session_id", id)

	// Writes come from the read loop and the ping ticker.
	var writeMu sync.Mutex
	send := func(msg StreamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(st.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(st.pingInterval))
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer func() {
			close(done)
			st.unregister(conn)
			slog.Info("live session closed", "session_id", id)
		}()

		conn.SetReadDeadline(time.Now().Add(st.readTimeout))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(st.readTimeout))
			return nil
		})

		if err := send(StreamMessage{Type: "hello", SessionID: id}); err != nil {
			return
		}

		var seq uint64
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(st.readTimeout))
			seq++

			reply := StreamMessage{Type: "quote", SessionID: id, Seq: seq}
			var req OptionRequest
			if err := json.Unmarshal(data, &req); err != nil {
				reply.Type, reply.Error = "error", "invalid request body"
			} else if q, err := st.svc.quote("stream", req, st.svc.classifier); err != nil {
				_, class := classify(err)
				metrics.CalculationErrors.WithLabelValues("stream", class).Inc()
				reply.Type, reply.Error = "error", err.Error()
			} else {
				reply.Quote = &q
			}
			if err := send(reply); err != nil {
				return
			}
		}
	}()
}

// admit reserves a client slot for an upgrade in progress.
func (st *Stream) admit() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed || len(st.clients)+st.pending >= st.maxClients {
		return false
	}
	st.pending++
	return true
}

// register turns a reserved slot into a session.
func (st *Stream) register(conn *websocket.Conn, id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pending--
	if st.closed {
		return false
	}
	st.clients[conn] = id
	metrics.StreamClients.Set(float64(len(st.clients)))
	return true
}

// release gives back a reserved slot after a failed upgrade.
func (st *Stream) release() {
	st.mu.Lock()
	st.pending--
	st.mu.Unlock()
}

func (st *Stream) unregister(conn *websocket.Conn) {
	st.mu.Lock()
	if _, ok := st.clients[conn]; ok {
		delete(st.clients, conn)
		conn.Close()
	}
	metrics.StreamClients.Set(float64(len(st.clients)))
	st.mu.Unlock()
}

// Clients returns the number of open sessions.
func (st *Stream) Clients() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.clients)
}

// Close sends a close frame to every session and refuses new ones.
func (st *Stream) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	deadline := time.Now().Add(time.Second)
	for conn := range st.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		conn.Close()
	}
}
