package main

import (
	"path/filepath"
	"testing"

	persistlog "apexhorizons.ai/internal/persistence/log"
	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station"
	"apexhorizons.ai/internal/sim/tuning"
)

func newStation(t *testing.T, seed int64) *station.Station {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	st, err := station.New(station.Config{RunID: "replay", Seed: seed, Tuning: tuning.Defaults()}, cats)
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	return st
}

func cmds(tick uint64) []protocol.ActMsg {
	var c []protocol.CommandReq
	switch tick {
	case 0:
		c = []protocol.CommandReq{{ID: "C0", Type: protocol.CmdStartRun, Mode: "SANDBOX"}}
	case 3:
		c = []protocol.CommandReq{{ID: "C1", Type: protocol.CmdPlace, Kind: "OXYGEN_RESERVE", Cell: &[2]int{0, 1}}}
	case 20:
		c = []protocol.CommandReq{{ID: "C2", Type: protocol.CmdPlace, Kind: "DRONE_HANGAR", Cell: &[2]int{2, 0}}}
	default:
		return nil
	}
	return []protocol.ActMsg{{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Tick: tick, Commands: c}}
}

// record runs a station for n ticks with the tick logger attached and returns
// the save taken at tick from.
func record(t *testing.T, dataDir string, n, from uint64) snapshot.SaveV1 {
	t.Helper()
	st := newStation(t, 21)
	l := persistlog.NewTickLogger(dataDir)
	st.SetTickLogger(l)
	var sv snapshot.SaveV1
	for tick := uint64(0); tick < n; tick++ {
		if tick == from {
			sv = st.ExportSave()
		}
		st.Step(0.5, cmds(tick))
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return sv
}

func TestReplay_VerifiesDigests(t *testing.T) {
	dir := t.TempDir()
	sv := record(t, dir, 400, 10)

	st := newStation(t, 1)
	if _, err := st.ImportSave(sv); err != nil {
		t.Fatalf("import: %v", err)
	}
	checked, err := replay(st, filepath.Join(dir, "ticks"), 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 390 {
		t.Fatalf("checked=%d", checked)
	}
}

func TestReplay_StopsAtToTick(t *testing.T) {
	dir := t.TempDir()
	sv := record(t, dir, 100, 0)

	st := newStation(t, 1)
	if _, err := st.ImportSave(sv); err != nil {
		t.Fatalf("import: %v", err)
	}
	checked, err := replay(st, filepath.Join(dir, "ticks"), 50, 59)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 10 || st.Tick() != 60 {
		t.Fatalf("checked=%d tick=%d", checked, st.Tick())
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	sv := record(t, dir, 50, 5)
	sv.Seed++

	st := newStation(t, 1)
	if _, err := st.ImportSave(sv); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := replay(st, filepath.Join(dir, "ticks"), 0, 0); err == nil {
		t.Fatalf("expected digest mismatch")
	}
}
