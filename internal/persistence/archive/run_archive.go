package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"apexhorizons.ai/internal/persistence/snapshot"
)

// PhaseGameOver is the runtime phase of a save taken after defeat.
const PhaseGameOver = "GAME_OVER"

type RunArchiveMeta struct {
	Run           int     `json:"run"`
	RunID         string  `json:"run_id"`
	EndTick       uint64  `json:"end_tick"`
	Seed          int64   `json:"seed"`
	Mode          string  `json:"mode,omitempty"`
	Defeat        string  `json:"defeat,omitempty"`
	CompletedRuns int     `json:"completed_runs"`
	PlayTime      float64 `json:"play_time"`
	Modules       int     `json:"modules"`
	Snapshot      string  `json:"snapshot"`
	CreatedAt     string  `json:"created_at"`
}

// IsRunEnd reports whether sv was taken after the run was lost.
func IsRunEnd(sv snapshot.SaveV1) bool {
	return sv.Runtime != nil && sv.Runtime.Phase == PhaseGameOver
}

// ArchiveRunSnapshot copies a game-over snapshot into `dataDir/archives/run_<NNN>/`,
// numbering runs after the highest existing archive.
// It returns (run, archivedPath, archived=true) when the snapshot represents a run end.
func ArchiveRunSnapshot(dataDir, snapshotPath string, sv snapshot.SaveV1) (run int, archivedPath string, archived bool, err error) {
	if !IsRunEnd(sv) {
		return 0, "", false, nil
	}
	root := filepath.Join(dataDir, "archives")
	last, err := lastRun(root)
	if err != nil {
		return 0, "", false, err
	}
	run = last + 1

	archiveDir := filepath.Join(root, fmt.Sprintf("run_%03d", run))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return 0, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := RunArchiveMeta{
		Run:           run,
		RunID:         sv.Header.RunID,
		EndTick:       sv.Header.Tick,
		Seed:          sv.Seed,
		Mode:          sv.Mode,
		Defeat:        sv.Runtime.Defeat,
		CompletedRuns: sv.CompletedRuns,
		PlayTime:      sv.PlayTime,
		Modules:       len(sv.Modules),
		Snapshot:      filepath.Base(dst),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return run, dst, true, nil
}

// List returns the metadata of every archived run, oldest first.
func List(dataDir string) ([]RunArchiveMeta, error) {
	root := filepath.Join(dataDir, "archives")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []RunArchiveMeta
	for _, e := range entries {
		if _, ok := runNumber(e); !ok {
			continue
		}
		b, err := os.ReadFile(filepath.Join(root, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m RunArchiveMeta
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%s/meta.json: %w", e.Name(), err)
		}
		out = append(out, m)
	}
	return out, nil
}

func lastRun(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	last := 0
	for _, e := range entries {
		if n, ok := runNumber(e); ok && n > last {
			last = n
		}
	}
	return last, nil
}

func runNumber(e os.DirEntry) (int, bool) {
	if !e.IsDir() || !strings.HasPrefix(e.Name(), "run_") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "run_"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
