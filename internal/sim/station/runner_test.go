package station

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/protocol"
)

func TestRunner_JoinActAndHUD(t *testing.T) {
	s := newStation(t, 5)
	r := NewRunner(s, RunnerConfig{TickRateHz: 50, AutosaveEveryTicks: 5, TuningDigest: "t"}, log.New(io.Discard, "", 0))
	snaps := make(chan snapshot.SaveV1, 16)
	r.SetSnapshotSink(snaps)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	out := make(chan []byte, 1)
	resp := make(chan JoinResponse, 1)
	r.Join() <- JoinRequest{Name: "test", Out: out, Resp: resp}
	var jr JoinResponse
	select {
	case jr = <-resp:
	case <-ctx.Done():
		t.Fatalf("no join response")
	}
	if jr.Welcome.Type != protocol.TypeWelcome || jr.Welcome.SessionID == "" || jr.Welcome.Params.TickRateHz != 50 {
		t.Fatalf("unexpected welcome: %+v", jr.Welcome)
	}
	if jr.Welcome.Catalogs.Tuning != "t" || len(jr.Catalogs) != 5 {
		t.Fatalf("unexpected catalogs: %+v / %d", jr.Welcome.Catalogs, len(jr.Catalogs))
	}

	var tick uint64
	_ = r.Do(ctx, func(s *Station) { tick = s.Tick() })
	r.Inbox() <- ActEnvelope{SessionID: jr.Welcome.SessionID, Act: protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Commands:        []protocol.CommandReq{{ID: "C1", Type: protocol.CmdStartRun, Mode: string(ModeTutorial)}},
	}}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case b := <-out:
			var h protocol.HUDMsg
			if err := json.Unmarshal(b, &h); err != nil {
				t.Fatalf("hud decode: %v", err)
			}
			if h.Phase == string(PhaseRunning) {
				if len(h.Modules) != 2 {
					t.Fatalf("unexpected hud modules: %+v", h.Modules)
				}
				goto running
			}
		case <-deadline:
			t.Fatalf("run never started")
		}
	}
running:
	if st := r.Stats(); st.Clients != 1 || st.Tick == 0 {
		t.Fatalf("stats=%+v", st)
	}
	select {
	case sv := <-snaps:
		if sv.Header.Version != snapshot.Version {
			t.Fatalf("snapshot header=%+v", sv.Header)
		}
	case <-deadline:
		t.Fatalf("no snapshot sent")
	}

	r.Leave() <- jr.Welcome.SessionID
	r.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunner_ObserverActsAreDropped(t *testing.T) {
	s := newStation(t, 5)
	r := NewRunner(s, RunnerConfig{TickRateHz: 100}, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = r.Run(ctx) }()
	defer r.Stop()

	out := make(chan []byte, 1)
	resp := make(chan JoinResponse, 1)
	r.Join() <- JoinRequest{Name: "viewer", Observer: true, Out: out, Resp: resp}
	jr := <-resp

	r.Inbox() <- ActEnvelope{SessionID: jr.Welcome.SessionID, Act: protocol.ActMsg{
		Type:     protocol.TypeAct,
		Commands: []protocol.CommandReq{{ID: "C1", Type: protocol.CmdStartRun, Mode: string(ModeSandbox)}},
	}}
	time.Sleep(100 * time.Millisecond)
	var phase Phase
	if err := r.Do(ctx, func(s *Station) { phase = s.Phase() }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if phase != PhaseNotStarted {
		t.Fatalf("observer act applied: phase=%s", phase)
	}
}
