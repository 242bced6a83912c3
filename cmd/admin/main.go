package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"apexhorizons.ai/internal/persistence/archive"
	persistlog "apexhorizons.ai/internal/persistence/log"
	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/sim/station"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "clear":
			clearCmd(os.Args[2:])
			return
		case "runs":
			runsCmd(os.Args[2:])
			return
		case "meta":
			metaCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "snapshots")
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), snapshot.FileSuffix) {
			fmt.Println(e.Name())
		}
	}
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	metas, err := archive.List(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list archives:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		fmt.Printf("run=%d tick=%d mode=%s defeat=%s modules=%d play_time=%.0fs snapshot=%s\n",
			m.Run, m.EndTick, m.Mode, m.Defeat, m.Modules, m.PlayTime, m.Snapshot)
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	action := fs.String("action", "", "only entries with this action (e.g. PLACE, TRADE)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	summary := fs.Bool("summary", false, "print counts per action instead of entries")
	_ = fs.Parse(args)

	f := auditFilter{Action: strings.ToUpper(strings.TrimSpace(*action)), Since: *sinceTick, To: *toTick}
	recs, err := readAudit(filepath.Join(*dataDir, "audit"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	if *summary {
		counts := map[string]int{}
		for _, e := range recs {
			counts[e.Action]++
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s %d\n", k, counts[k])
		}
		return
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range recs {
		_ = enc.Encode(e)
	}
}

func clearCmd(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	snapPath := fs.String("snapshot", "", "snapshot to edit (optional; defaults to latest)")
	rect := fs.String("rect", "", "cells to clear: x1,z1:x2,z2 (required)")
	outPath := fs.String("out", "", "output snapshot path (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*rect) == "" {
		fmt.Fprintln(os.Stderr, "missing -rect")
		os.Exit(2)
	}
	min, max, err := parseRect(*rect)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -rect:", err)
		os.Exit(2)
	}

	dir := filepath.Join(*dataDir, "snapshots")
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = snapshot.Latest(dir)
	}
	if snapshotToLoad == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}
	sv, _, err := snapshot.ReadSnapshot(snapshotToLoad)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	removed := clearRect(&sv, min, max)
	if strings.TrimSpace(*outPath) == "" {
		*outPath = filepath.Join(dir, fmt.Sprintf("%d.edited%s", sv.Header.Tick, snapshot.FileSuffix))
	}
	if err := snapshot.WriteSnapshot(*outPath, sv); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("clear ok: snapshot=%s tick=%d rect=%s removed=%d kept=%d out=%s\n",
		filepath.Base(snapshotToLoad), sv.Header.Tick, *rect, removed, len(sv.Modules), *outPath)
}

type auditFilter struct {
	Action string
	Since  uint64
	To     uint64
}

func (f auditFilter) match(e station.AuditEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if e.Tick < f.Since {
		return false
	}
	return f.To == 0 || e.Tick <= f.To
}

func readAudit(dir string, f auditFilter) ([]station.AuditEntry, error) {
	files, err := persistlog.ListFiles(dir, "audit")
	if err != nil {
		return nil, err
	}
	out := make([]station.AuditEntry, 0, 256)
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e station.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if f.match(e) {
				out = append(out, e)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// clearRect drops the modules inside [min,max], bounds inclusive.
func clearRect(sv *snapshot.SaveV1, min, max [2]int) (removed int) {
	kept := sv.Modules[:0]
	for _, m := range sv.Modules {
		if m.X >= min[0] && m.X <= max[0] && m.Z >= min[1] && m.Z <= max[1] {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	sv.Modules = kept
	return removed
}

func parseRect(s string) (min, max [2]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,z1:x2,z2")
	}
	a, err := parseVec2(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec2(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 2; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseVec2(s string) ([2]int, error) {
	var v [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return v, fmt.Errorf("expected x,z")
	}
	for i := 0; i < 2; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}
