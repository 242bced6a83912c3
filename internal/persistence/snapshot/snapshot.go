package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"apexhorizons.ai/internal/sim/station/feature/drones"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/station/feature/progression"
)

const Version = 1

// FileSuffix is the extension of snapshot files written by WriteSnapshot.
const FileSuffix = ".snap.zst"

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    uint64 `json:"tick"`
}

// SaveV1 is the flat persisted station. The first five fields are the core
// shape every loader must accept; the rest are optional and absent in saves
// written by older clients.
type SaveV1 struct {
	Header Header `json:"header"`

	CompletedRuns int                 `json:"completed_runs"`
	PlayTime      float64             `json:"play_time"`
	TutorialStep  int                 `json:"tutorial_step"`
	Modifiers     modifiers.Modifiers `json:"modifiers"`
	Modules       []ModuleV1          `json:"modules"`

	Mode           string        `json:"mode,omitempty"`
	Stock          *ledger.Stock `json:"stock,omitempty"`
	GoalID         string        `json:"goal_id,omitempty"`
	Starters       []string      `json:"starters,omitempty"`
	VisitedSandbox bool          `json:"visited_sandbox,omitempty"`
	Seed           int64         `json:"seed,omitempty"`
	Tick           uint64        `json:"tick,omitempty"`

	// Runtime carries everything else a replay needs to resume bit-for-bit.
	Runtime *RuntimeV1 `json:"runtime,omitempty"`
}

type ModuleV1 struct {
	Kind  string  `json:"kind"`
	X     int     `json:"x"`
	Z     int     `json:"z"`
	ID    int     `json:"id,omitempty"`
	Timer float64 `json:"timer,omitempty"`
}

type RuntimeV1 struct {
	Phase         string             `json:"phase"`
	Paused        bool               `json:"paused,omitempty"`
	TutorialTimer float64            `json:"tutorial_timer,omitempty"`
	Timers        events.Timers      `json:"timers"`
	Pending       events.Pending     `json:"pending"`
	Goals         []progression.Goal `json:"goals,omitempty"`
	ScienceTimer  float64            `json:"science_timer,omitempty"`
	Hazards       drones.System      `json:"hazards"`
	NextModuleID  int                `json:"next_module_id"`
	Defeat        string             `json:"defeat,omitempty"`
	Hold          string             `json:"hold,omitempty"`
	Hover         *[2]int            `json:"hover,omitempty"`
}

// saveWire mirrors SaveV1 with modules left raw so one bad entry does not fail the whole decode.
type saveWire struct {
	SaveV1
	Modules []json.RawMessage `json:"modules"`
}

func Marshal(s SaveV1) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes b leniently: module entries that fail to decode are
// dropped and counted in skipped.
func Unmarshal(b []byte) (s SaveV1, skipped int, err error) {
	var w saveWire
	if err := json.Unmarshal(b, &w); err != nil {
		return SaveV1{}, 0, fmt.Errorf("save decode: %w", err)
	}
	s = w.SaveV1
	s.Modules = make([]ModuleV1, 0, len(w.Modules))
	for _, raw := range w.Modules {
		var m ModuleV1
		if err := json.Unmarshal(raw, &m); err != nil || m.Kind == "" {
			skipped++
			continue
		}
		s.Modules = append(s.Modules, m)
	}
	return s, skipped, nil
}

// WriteSnapshot writes a zstd stream holding one JSON header line followed by the JSON save.
func WriteSnapshot(path string, snap SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	body, err := Marshal(snap)
	if err != nil {
		return fmt.Errorf("save encode: %w", err)
	}
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	_, err = bw.Write(hb)
	if err == nil {
		err = bw.WriteByte('\n')
	}
	if err == nil {
		_, err = bw.Write(body)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SaveV1, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return SaveV1{}, 0, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return SaveV1{}, 0, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	hb, err := br.ReadBytes('\n')
	if err != nil {
		return SaveV1{}, 0, fmt.Errorf("%s: header: %w", filepath.Base(path), err)
	}
	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(hb), &h); err != nil {
		return SaveV1{}, 0, fmt.Errorf("%s: header: %w", filepath.Base(path), err)
	}
	if h.Version != Version {
		return SaveV1{}, 0, fmt.Errorf("%s: unsupported version %d", filepath.Base(path), h.Version)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(br); err != nil {
		return SaveV1{}, 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	s, skipped, err := Unmarshal(body.Bytes())
	if err != nil {
		return SaveV1{}, 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, skipped, nil
}

// PathFor is the file WriteSnapshot should use for a save taken at tick.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", tick, FileSuffix))
}

// Latest returns the snapshot with the highest tick in dir, or "" when there is none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, FileSuffix), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
