package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station"
	"apexhorizons.ai/internal/sim/tuning"
)

func startServer(t *testing.T, cfg Config) string {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	st, err := station.New(station.Config{RunID: "test", Seed: 7, Tuning: tuning.Defaults()}, cats)
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	r := station.NewRunner(st, station.RunnerConfig{TickRateHz: 50}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Run(ctx) }()

	srv, err := NewServer(r, cfg, logger)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string, observer bool) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "t", Observer: observer}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" {
		t.Fatalf("welcome=%+v", welcome)
	}
	for i := 0; i < 5; i++ {
		var c protocol.CatalogMsg
		if err := conn.ReadJSON(&c); err != nil || c.Type != protocol.TypeCatalog {
			t.Fatalf("catalog %d: %+v %v", i, c, err)
		}
	}
	return conn, welcome
}

// readUntil reads frames until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(typ string, b []byte) bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if match(base.Type, b) {
			return
		}
	}
}

func ackFor(id string, want *protocol.AckMsg) func(string, []byte) bool {
	return func(typ string, b []byte) bool {
		if typ != protocol.TypeAck {
			return false
		}
		var a protocol.AckMsg
		if err := json.Unmarshal(b, &a); err != nil || a.AckFor != id {
			return false
		}
		*want = a
		return true
	}
}

func act(id string, cmds ...protocol.CommandReq) protocol.ActMsg {
	return protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: id, Commands: cmds}
}

func TestServer_HandshakeActAndHUD(t *testing.T) {
	conn, _ := dial(t, startServer(t, Config{}), false)

	// Use the HUD tick so the command is not stale.
	var tick uint64
	readUntil(t, conn, func(typ string, b []byte) bool {
		if typ != protocol.TypeHUD {
			return false
		}
		var h protocol.HUDMsg
		_ = json.Unmarshal(b, &h)
		tick = h.Tick
		return true
	})
	a := act("A1", protocol.CommandReq{ID: "C1", Type: protocol.CmdStartRun, Mode: "TUTORIAL"})
	a.Tick = tick
	if err := conn.WriteJSON(a); err != nil {
		t.Fatalf("act: %v", err)
	}

	var ack protocol.AckMsg
	readUntil(t, conn, ackFor("A1", &ack))
	if !ack.Accepted || ack.Code != "" {
		t.Fatalf("ack=%+v", ack)
	}
	readUntil(t, conn, func(typ string, b []byte) bool {
		if typ != protocol.TypeHUD {
			return false
		}
		var h protocol.HUDMsg
		_ = json.Unmarshal(b, &h)
		return h.Phase == "RUNNING" && len(h.Modules) == 2
	})
}

func TestServer_RejectsInvalidAct(t *testing.T) {
	conn, _ := dial(t, startServer(t, Config{}), false)
	bad := act("A1", protocol.CommandReq{ID: "C1", Type: "TELEPORT"})
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack protocol.AckMsg
	readUntil(t, conn, ackFor("A1", &ack))
	if ack.Accepted || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("ack=%+v", ack)
	}

	old := act("A2", protocol.CommandReq{ID: "C1", Type: protocol.CmdPause})
	old.ProtocolVersion = "0.1"
	if err := conn.WriteJSON(old); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, ackFor("A2", &ack))
	if ack.Accepted || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("ack=%+v", ack)
	}
}

func TestServer_RateLimit(t *testing.T) {
	conn, _ := dial(t, startServer(t, Config{ActsPerSecond: 0.001, ActBurst: 1}), false)
	for _, id := range []string{"A1", "A2"} {
		if err := conn.WriteJSON(act(id, protocol.CommandReq{ID: "C", Type: protocol.CmdPause})); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	var ack protocol.AckMsg
	readUntil(t, conn, ackFor("A1", &ack))
	if !ack.Accepted {
		t.Fatalf("first ack=%+v", ack)
	}
	readUntil(t, conn, ackFor("A2", &ack))
	if ack.Accepted || ack.Code != protocol.ErrRateLimit {
		t.Fatalf("second ack=%+v", ack)
	}
}

func TestServer_ObserverCannotAct(t *testing.T) {
	conn, _ := dial(t, startServer(t, Config{}), true)
	if err := conn.WriteJSON(act("A1", protocol.CommandReq{ID: "C", Type: protocol.CmdPause})); err != nil {
		t.Fatalf("write: %v", err)
	}
	var ack protocol.AckMsg
	readUntil(t, conn, ackFor("A1", &ack))
	if ack.Accepted || ack.Code != protocol.ErrBadRequest {
		t.Fatalf("ack=%+v", ack)
	}
}

func TestServer_RequiresHello(t *testing.T) {
	url := startServer(t, Config{})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(act("A1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestHandshake_LateJoinIsReleased(t *testing.T) {
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	st, err := station.New(station.Config{RunID: "test", Seed: 7, Tuning: tuning.Defaults()}, cats)
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	var logs syncBuffer
	r := station.NewRunner(st, station.RunnerConfig{TickRateHz: 50}, log.New(&logs, "", 0))
	srv, err := NewServer(r, Config{JoinTimeout: 50 * time.Millisecond}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	// The runner is not running yet, so the join is only queued.
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "slow"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the connection to close after the join timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(logs.String(), "leave session=") {
		if time.Now().After(deadline) {
			t.Fatalf("late session never left; logs:\n%s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(logs.String(), "join session=") {
		t.Fatalf("join not logged:\n%s", logs.String())
	}
	time.Sleep(50 * time.Millisecond)
	if c := r.Stats().Clients; c != 0 {
		t.Fatalf("clients=%d", c)
	}
}
