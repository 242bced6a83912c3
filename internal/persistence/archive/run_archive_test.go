package archive

import (
	"os"
	"path/filepath"
	"testing"

	"apexhorizons.ai/internal/persistence/snapshot"
)

func writeDummy(t *testing.T, dir string, tick uint64) string {
	t.Helper()
	src := snapshot.PathFor(filepath.Join(dir, "snapshots"), tick)
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	if err := os.WriteFile(src, []byte("dummy"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	return src
}

func TestArchiveRunSnapshot_CopiesGameOverSnapshots(t *testing.T) {
	dir := t.TempDir()

	running := snapshot.SaveV1{
		Header:  snapshot.Header{Version: 1, RunID: "r1", Tick: 40},
		Runtime: &snapshot.RuntimeV1{Phase: "RUNNING"},
	}
	if _, _, ok, err := ArchiveRunSnapshot(dir, writeDummy(t, dir, 40), running); ok || err != nil {
		t.Fatalf("running save archived: ok=%v err=%v", ok, err)
	}

	for i, tick := range []uint64{120, 300} {
		sv := snapshot.SaveV1{
			Header:  snapshot.Header{Version: 1, RunID: "r1", Tick: tick},
			Seed:    42,
			Mode:    "SANDBOX",
			Modules: []snapshot.ModuleV1{{Kind: "SOLAR_PANEL"}},
			Runtime: &snapshot.RuntimeV1{Phase: PhaseGameOver, Defeat: "OXYGEN"},
		}
		run, archivedPath, ok, err := ArchiveRunSnapshot(dir, writeDummy(t, dir, tick), sv)
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		if !ok || run != i+1 {
			t.Fatalf("ok=%v run=%d want %d", ok, run, i+1)
		}
		got, err := os.ReadFile(archivedPath)
		if err != nil {
			t.Fatalf("read archived: %v", err)
		}
		if string(got) != "dummy" {
			t.Fatalf("archived content mismatch: %q", got)
		}
	}

	metas, err := List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 2 || metas[0].EndTick != 120 || metas[1].Run != 2 || metas[1].Defeat != "OXYGEN" || metas[1].Modules != 1 {
		t.Fatalf("metas=%+v", metas)
	}
}

func TestList_NoArchives(t *testing.T) {
	metas, err := List(t.TempDir())
	if err != nil || len(metas) != 0 {
		t.Fatalf("metas=%v err=%v", metas, err)
	}
}
