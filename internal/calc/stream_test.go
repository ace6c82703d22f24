package calc_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/atmx/greeks-engine/internal/calc"
	"github.com/atmx/greeks-engine/internal/config"
)

func newStreamEnv(t *testing.T, maxClients int) (*calc.Stream, string) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Stream.MaxClients = maxClients
	svc := calc.NewService(calc.OptionsFrom(&cfg), nil)
	st := calc.NewStream(svc, cfg.Stream)

	r := chi.NewRouter()
	r.Get("/api/v1/ws", st.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return st, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) calc.StreamMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg calc.StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestStream_QuotesEachFrame(t *testing.T) {
	_, url := newStreamEnv(t, 4)
	conn := dial(t, url)

	hello := readFrame(t, conn)
	if hello.Type != "hello" || hello.SessionID == "" {
		t.Fatalf("hello = %+v", hello)
	}

	if err := conn.WriteJSON(atmCall); err != nil {
		t.Fatal(err)
	}
	msg := readFrame(t, conn)
	if msg.Type != "quote" || msg.Seq != 1 || msg.SessionID != hello.SessionID {
		t.Fatalf("reply = %+v", msg)
	}
	if msg.Quote == nil || !msg.Quote.Greeks.Price.Equal(d(12.336)) {
		t.Errorf("quote = %+v", msg.Quote)
	}

	bad := atmCall
	bad.Volatility = 0
	conn.WriteJSON(bad)
	msg = readFrame(t, conn)
	if msg.Type != "error" || msg.Seq != 2 || !strings.Contains(msg.Error, "volatility") {
		t.Errorf("reply = %+v", msg)
	}

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	msg = readFrame(t, conn)
	if msg.Type != "error" || msg.Seq != 3 || msg.Error != "invalid request body" {
		t.Errorf("reply = %+v", msg)
	}
}

func TestStream_RejectsOverCapacity(t *testing.T) {
	st, url := newStreamEnv(t, 1)
	conn := dial(t, url)
	readFrame(t, conn)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected second session to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
	if st.Clients() != 1 {
		t.Errorf("clients = %d, want 1", st.Clients())
	}
}

func TestStream_CloseEndsSessions(t *testing.T) {
	st, url := newStreamEnv(t, 4)
	conn := dial(t, url)
	readFrame(t, conn)

	st.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Error("closed stream should refuse new sessions")
	}
}
