package station

import (
	"testing"

	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/station/feature/tutorial"
)

func scriptedActs(tick uint64) []protocol.ActMsg {
	var cmds []protocol.CommandReq
	switch tick {
	case 0:
		cmds = []protocol.CommandReq{{ID: "C0", Type: protocol.CmdStartRun, Mode: string(ModeSandbox)}}
	case 1:
		cmds = []protocol.CommandReq{{ID: "C1", Type: protocol.CmdPlace, Kind: string(catalogs.KindOxygenReserve), Cell: &[2]int{0, 1}}}
	case 2:
		cmds = []protocol.CommandReq{
			{ID: "C2", Type: protocol.CmdPlace, Kind: string(catalogs.KindCryptoGenerator), Cell: &[2]int{-1, 0}},
			{ID: "C3", Type: protocol.CmdPlace, Kind: string(catalogs.KindGreenhouse), Cell: &[2]int{0, 2}},
		}
	case 3:
		cmds = []protocol.CommandReq{{ID: "C4", Type: protocol.CmdPlace, Kind: string(catalogs.KindDroneHangar), Cell: &[2]int{2, 0}}}
	default:
		return nil
	}
	return []protocol.ActMsg{{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Tick: tick, Commands: cmds}}
}

// answerModals keeps the run moving when a timer opens a choice.
func answerModals(s *Station) {
	p := s.Pending()
	switch {
	case len(p.Boons) > 0:
		_ = s.SelectBoon(p.Boons[0].ID)
	case p.Modal != "" && len(p.Trades) > 0:
		_ = s.CloseMerchant()
	case len(p.Gifts) > 0:
		_ = s.ChooseGift(p.Gifts[0].ID)
	case p.Open():
		_ = s.AnswerSignal(true)
	}
}

func TestDeterminism_SameSeedSameDigest(t *testing.T) {
	s1 := newStation(t, 42)
	s2 := newStation(t, 42)

	for tick := uint64(0); tick < 3000; tick++ {
		answerModals(s1)
		answerModals(s2)
		r1 := s1.Step(0.1, scriptedActs(tick))
		r2 := s2.Step(0.1, scriptedActs(tick))
		if r1.Tick != tick || r2.Tick != tick {
			t.Fatalf("tick mismatch: %d %d want %d", r1.Tick, r2.Tick, tick)
		}
		if r1.Digest != r2.Digest {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", tick, r1.Digest, r2.Digest)
		}
	}
	if s1.countKind(catalogs.KindOxygenReserve) == 0 && s1.Phase() != PhaseGameOver {
		t.Fatalf("scripted placements did not apply: %+v", s1.Modules())
	}
}

func TestDeterminism_SeedChangesOutcome(t *testing.T) {
	a := newStation(t, 1)
	b := newStation(t, 2)
	startRun(t, a, ModeSandbox)
	startRun(t, b, ModeSandbox)
	if a.timers == b.timers {
		t.Fatalf("different seeds drew identical signal timers: %+v", a.timers)
	}
}

func TestSave_RoundTripResumesIdentically(t *testing.T) {
	s1 := newStation(t, 11)
	for tick := uint64(0); tick < 600; tick++ {
		answerModals(s1)
		s1.Step(0.25, scriptedActs(tick))
	}
	_ = s1.Hold(catalogs.KindSolarPanel)

	b, err := snapshot.Marshal(s1.ExportSave())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	sv, skipped, err := snapshot.Unmarshal(b)
	if err != nil || skipped != 0 {
		t.Fatalf("unmarshal: skipped=%d err=%v", skipped, err)
	}

	s2 := newStation(t, 999)
	rep, err := s2.ImportSave(sv)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.Skipped != 0 || rep.Modules != len(s1.Modules()) {
		t.Fatalf("report=%+v modules=%d", rep, len(s1.Modules()))
	}
	if s2.Seed() != 11 || s2.Tick() != s1.Tick() {
		t.Fatalf("seed/tick not restored: %d/%d", s2.Seed(), s2.Tick())
	}
	if s1.Digest() != s2.Digest() {
		t.Fatalf("digest mismatch after import")
	}

	for i := 0; i < 600; i++ {
		answerModals(s1)
		answerModals(s2)
		r1 := s1.Step(0.25, nil)
		r2 := s2.Step(0.25, nil)
		if r1.Digest != r2.Digest {
			t.Fatalf("diverged %d ticks after import", i)
		}
	}
}

func TestImportSave_LegacyShapeSkipsBadEntries(t *testing.T) {
	s := newStation(t, 1)
	sv := snapshot.SaveV1{
		CompletedRuns: 3,
		PlayTime:      77,
		TutorialStep:  int(tutorial.StepComplete),
		Modules: []snapshot.ModuleV1{
			{Kind: "SOLAR_PANEL", X: 0, Z: 0},
			{Kind: "WARP_GATE", X: 1, Z: 0},
			{Kind: "DORMITORY", X: 0, Z: 0},
			{Kind: "DORMITORY", X: 1, Z: 0},
		},
	}
	rep, err := s.ImportSave(sv)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep.Modules != 2 || rep.Skipped != 2 || len(rep.Reasons) != 2 {
		t.Fatalf("report=%+v", rep)
	}
	if s.Mode() != ModeTutorial || s.Phase() != PhaseRunning || s.Tutorial().Step != tutorial.StepComplete {
		t.Fatalf("mode=%s phase=%s step=%v", s.Mode(), s.Phase(), s.Tutorial().Step)
	}
	if s.Modifiers() != modifiers.Defaults() {
		t.Fatalf("zero modifiers should sanitize to defaults: %+v", s.Modifiers())
	}
	if s.Meta().CompletedRuns != 3 {
		t.Fatalf("completed runs=%d", s.Meta().CompletedRuns)
	}
	mods := s.Modules()
	if mods[0].ID == mods[1].ID || mods[1].Def.OccupantGenerated != 2 {
		t.Fatalf("modules not rebuilt from registry: %+v", mods)
	}
	if st := s.Stock(); st.Currency != 500 {
		t.Fatalf("missing stock should fall back to the start stock: %+v", st)
	}

	if _, err := s.ImportSave(snapshot.SaveV1{Header: snapshot.Header{Version: 9}}); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestImportSave_SandboxWithoutRuntime(t *testing.T) {
	s := newStation(t, 1)
	rep, err := s.ImportSave(snapshot.SaveV1{
		TutorialStep: int(tutorial.StepSandbox),
		Modules: []snapshot.ModuleV1{
			{Kind: "SOLAR_PANEL", X: 0, Z: 0},
			{Kind: "JUMP_DRIVE", X: 6, Z: 0},
		},
		GoalID: "pop",
	})
	if err != nil || rep.Modules != 2 {
		t.Fatalf("import: %+v %v", rep, err)
	}
	if s.Mode() != ModeSandbox || s.Phase() != PhaseJumpReady {
		t.Fatalf("mode=%s phase=%s", s.Mode(), s.Phase())
	}
	if g, ok := s.Goal(); !ok || g.ID != "pop" {
		t.Fatalf("goal=%+v", g)
	}
}
