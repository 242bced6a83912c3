package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"apexhorizons.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "client name")
		mode  = flag.String("mode", "SANDBOX", "run mode to start (TUTORIAL or SANDBOX)")
		every = flag.Uint64("every", 20, "ticks between build decisions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	p := newPlayer(*mode, *every)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s run=%s tick_rate=%d seed=%d", w.SessionID, w.RunID, w.Params.TickRateHz, w.Params.Seed)

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err == nil && !a.Accepted {
				logger.Printf("ACK rejected %s: %s %s", a.AckFor, a.Code, a.Message)
			}

		case protocol.TypeHUD:
			var h protocol.HUDMsg
			if err := json.Unmarshal(msg, &h); err != nil {
				continue
			}
			for _, e := range h.Events {
				if e["type"] == "GAME_OVER" || e["type"] == "JUMPED" || e["type"] == "GOAL_COMPLETE" {
					logger.Printf("tick=%d %v", h.Tick, e["type"])
				}
			}
			cmds := p.decide(&h)
			if len(cmds) == 0 {
				continue
			}
			act := protocol.ActMsg{
				Type:            protocol.TypeAct,
				ProtocolVersion: protocol.Version,
				ID:              fmt.Sprintf("A%d", h.Tick),
				Tick:            h.Tick,
				Commands:        cmds,
			}
			_ = conn.WriteJSON(act)
		}
	}
}

// player is a greedy autoplayer: it answers modals, jumps when it can and
// otherwise builds whatever module shores up the scarcest resource.
type player struct {
	mode  string
	every uint64

	acted   bool
	lastAct uint64
	seq     int
}

func newPlayer(mode string, every uint64) *player {
	if every == 0 {
		every = 1
	}
	return &player{mode: mode, every: every}
}

func (p *player) id(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s%d", prefix, p.seq)
}

func (p *player) decide(h *protocol.HUDMsg) []protocol.CommandReq {
	if p.acted && h.Tick < p.lastAct+p.every {
		return nil
	}
	cmds := p.next(h)
	if len(cmds) > 0 {
		p.acted, p.lastAct = true, h.Tick
	}
	return cmds
}

func (p *player) next(h *protocol.HUDMsg) []protocol.CommandReq {
	switch h.Phase {
	case "NOT_STARTED", "GAME_OVER":
		return []protocol.CommandReq{{ID: p.id("S"), Type: protocol.CmdStartRun, Mode: p.mode}}
	case "JUMP_READY":
		if h.JumpDrive != nil && h.Modal == nil {
			cell := *h.JumpDrive
			return []protocol.CommandReq{{ID: p.id("J"), Type: protocol.CmdJump, Cell: &cell}}
		}
	}

	if m := h.Modal; m != nil {
		switch {
		case len(m.Boons) > 0:
			return []protocol.CommandReq{{ID: p.id("B"), Type: protocol.CmdSelectBoon, Choice: m.Boons[0].ID}}
		case len(m.Gifts) > 0:
			return []protocol.CommandReq{{ID: p.id("G"), Type: protocol.CmdChooseGift, Choice: m.Gifts[0].ID}}
		case m.Modal == "MERCHANT":
			return []protocol.CommandReq{{ID: p.id("M"), Type: protocol.CmdCloseMerchant}}
		default:
			return []protocol.CommandReq{{ID: p.id("Q"), Type: protocol.CmdAnswerSignal, Accept: false}}
		}
	}
	if h.Phase != "RUNNING" {
		return nil
	}

	want := p.want(h)
	if g := h.Ghost; g != nil && g.Kind == want && len(g.ValidCells) > 0 {
		cell := nearest(g.ValidCells)
		return []protocol.CommandReq{{ID: p.id("P"), Type: protocol.CmdPlace, Kind: want, Cell: &cell}}
	}
	return []protocol.CommandReq{{ID: p.id("H"), Type: protocol.CmdHold, Kind: want}}
}

// want picks the module kind for the scarcest resource.
func (p *player) want(h *protocol.HUDMsg) string {
	st := h.Stock
	switch {
	case h.ModuleLimit > 0 && h.ModuleCount >= h.ModuleLimit-1:
		return "DORMITORY"
	case h.Trends.Energy < 0 || st.Energy < st.EnergyMax*0.25:
		return "SOLAR_PANEL"
	case h.Trends.Oxygen < 0 || st.Oxygen < st.OxygenMax*0.25:
		return "OXYGEN_RESERVE"
	case h.Trends.Food < 0:
		return "GREENHOUSE"
	default:
		return "CRYPTO_GENERATOR"
	}
}

// nearest returns the candidate closest to the origin (Manhattan), first wins on ties.
func nearest(cells [][2]int) [2]int {
	best := cells[0]
	bestD := abs(best[0]) + abs(best[1])
	for _, c := range cells[1:] {
		if d := abs(c[0]) + abs(c[1]); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
