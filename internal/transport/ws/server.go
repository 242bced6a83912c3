package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/station"
	"apexhorizons.ai/schemas"
)

type Config struct {
	// ActsPerSecond and ActBurst bound how many ACT messages one connection may send.
	ActsPerSecond float64
	ActBurst      int
	// OutQueue is the per-connection HUD buffer. HUD frames are latest-wins.
	OutQueue int
	// JoinTimeout bounds the wait for the runner to register a new session.
	JoinTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ActsPerSecond <= 0 {
		c.ActsPerSecond = 20
	}
	if c.ActBurst <= 0 {
		c.ActBurst = 10
	}
	if c.OutQueue <= 0 {
		c.OutQueue = 4
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 5 * time.Second
	}
	return c
}

type Server struct {
	runner *station.Runner
	cfg    Config
	log    *log.Logger

	upgrader  websocket.Upgrader
	actSchema *jsonschema.Schema
}

func NewServer(r *station.Runner, cfg Config, logger *log.Logger) (*Server, error) {
	act, err := schemas.Compile("act.schema.json")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		runner:    r,
		cfg:       cfg.withDefaults(),
		log:       logger,
		actSchema: act,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, observer, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		defer func() { s.runner.Leave() <- sessionID }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		acks := make(chan []byte, 32)

		// Writer goroutine; the only one that writes to conn after the handshake.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case b = <-acks:
				case b = <-out:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.cfg.ActsPerSecond), s.cfg.ActBurst)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeAct {
				continue
			}
			act, code, reason := s.decodeAct(msg)
			switch {
			case code != "":
			case observer:
				code, reason = protocol.ErrBadRequest, "observer sessions cannot act"
			case !limiter.Allow():
				code, reason = protocol.ErrRateLimit, "too many ACT messages"
			}
			if code == "" {
				select {
				case s.runner.Inbox() <- station.ActEnvelope{SessionID: sessionID, Act: act}:
				case <-ctx.Done():
					return
				}
			}
			ack := protocol.AckMsg{
				Type:            protocol.TypeAck,
				ProtocolVersion: protocol.Version,
				AckFor:          act.ID,
				Accepted:        code == "",
				Code:            code,
				Message:         reason,
				ServerTick:      s.runner.Stats().Tick,
			}
			if b, err := json.Marshal(ack); err == nil {
				select {
				case acks <- b:
				default:
					s.log.Printf("session=%s ack dropped for %q", sessionID, act.ID)
				}
			}
		}
	}
}

// decodeAct validates an ACT frame. A non-empty code means the frame is rejected.
func (s *Server) decodeAct(msg []byte) (act protocol.ActMsg, code, reason string) {
	var raw any
	if err := json.Unmarshal(msg, &raw); err != nil {
		return act, protocol.ErrProtoBadRequest, "invalid json"
	}
	// Best effort so the ACK can still name the message.
	_ = json.Unmarshal(msg, &act)
	if err := s.actSchema.Validate(raw); err != nil {
		return act, protocol.ErrProtoBadRequest, err.Error()
	}
	if act.ProtocolVersion != protocol.Version {
		return act, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	return act, "", ""
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, observer bool, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false, nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	out = make(chan []byte, s.cfg.OutQueue)
	respCh := make(chan station.JoinResponse, 1)
	s.runner.Join() <- station.JoinRequest{
		Name:     hello.ClientName,
		Observer: hello.Observer,
		Out:      out,
		Resp:     respCh,
	}
	var resp station.JoinResponse
	select {
	case resp = <-respCh:
	case <-time.After(s.cfg.JoinTimeout):
		go s.leaveLate(respCh)
		return "", false, nil
	}

	// Welcome and catalogs go out before the writer goroutine starts.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.runner.Leave() <- resp.Welcome.SessionID
		return "", false, nil
	}
	for _, c := range resp.Catalogs {
		if err := writeJSON(conn, c); err != nil {
			s.runner.Leave() <- resp.Welcome.SessionID
			return "", false, nil
		}
	}
	return resp.Welcome.SessionID, hello.Observer, out
}

// leaveLate releases a session whose join was answered after the handshake gave up.
func (s *Server) leaveLate(respCh <-chan station.JoinResponse) {
	select {
	case resp := <-respCh:
		select {
		case s.runner.Leave() <- resp.Welcome.SessionID:
		case <-s.runner.Done():
		}
	case <-s.runner.Done():
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
