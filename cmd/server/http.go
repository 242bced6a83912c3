package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"apexhorizons.ai/internal/persistence/archive"
	"apexhorizons.ai/internal/persistence/kv"
	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/sim/station"
)

// saver writes a save to the snapshot dir and the key-value store. The first
// save after a defeat is also copied into the run archive under dataDir.
type saver struct {
	dir     string
	dataDir string
	meta    *kv.MetaStore
	logger  *log.Logger

	mu       sync.Mutex
	gameOver bool
}

func (s *saver) Save(sv snapshot.SaveV1) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := snapshot.PathFor(s.dir, sv.Header.Tick)
	if err := snapshot.WriteSnapshot(path, sv); err != nil {
		return "", fmt.Errorf("snapshot write: %w", err)
	}
	over := archive.IsRunEnd(sv)
	if over && !s.gameOver && s.dataDir != "" {
		run, dst, ok, err := archive.ArchiveRunSnapshot(s.dataDir, path, sv)
		if err != nil {
			return path, fmt.Errorf("archive run: %w", err)
		}
		if ok && s.logger != nil {
			s.logger.Printf("archived run %d tick=%d: %s", run, sv.Header.Tick, dst)
		}
	}
	s.gameOver = over
	if err := s.meta.StoreSave(sv); err != nil {
		return path, fmt.Errorf("kv save: %w", err)
	}
	return path, nil
}

type muxDeps struct {
	runner *station.Runner
	ws     http.HandlerFunc
	saver  *saver
	admin  bool
}

func newMux(d muxDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d.runner.Stats())
	})

	if d.admin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			var resp struct {
				Stats        station.Stats `json:"stats"`
				Meta         station.Meta  `json:"meta"`
				Goal         string        `json:"goal,omitempty"`
				GoalProgress float64       `json:"goal_progress"`
			}
			resp.Stats = d.runner.Stats()
			err := d.runner.Do(ctx, func(s *station.Station) {
				resp.Meta = s.Meta()
				if g, ok := s.Goal(); ok {
					resp.Goal = g.ID
					resp.GoalProgress = s.GoalProgress()
				}
			})
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/save", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			var sv snapshot.SaveV1
			err := d.runner.Do(ctx, func(s *station.Station) { sv = s.ExportSave() })
			var path string
			if err == nil {
				path, err = d.saver.Save(sv)
			}
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": sv.Header.Tick, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": sv.Header.Tick, "path": path})
		})
	}
	mux.HandleFunc("/v1/ws", d.ws)
	return mux
}

// writeMetrics renders the Prometheus text exposition format.
func writeMetrics(rw http.ResponseWriter, s station.Stats) {
	fmt.Fprintf(rw, "# HELP apexhorizons_station_tick Current station tick.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_station_tick gauge\n")
	fmt.Fprintf(rw, "apexhorizons_station_tick %d\n", s.Tick)

	fmt.Fprintf(rw, "# HELP apexhorizons_station_clients Current number of connected clients.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_station_clients gauge\n")
	fmt.Fprintf(rw, "apexhorizons_station_clients %d\n", s.Clients)

	fmt.Fprintf(rw, "# HELP apexhorizons_station_phase Run phase (1 for the current phase).\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_station_phase gauge\n")
	fmt.Fprintf(rw, "apexhorizons_station_phase{phase=%q,mode=%q} 1\n", s.Phase, s.Mode)

	fmt.Fprintf(rw, "# HELP apexhorizons_station_modules Placed module count.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_station_modules gauge\n")
	fmt.Fprintf(rw, "apexhorizons_station_modules %d\n", s.Modules)

	fmt.Fprintf(rw, "# HELP apexhorizons_completed_runs Completed sandbox runs.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_completed_runs gauge\n")
	fmt.Fprintf(rw, "apexhorizons_completed_runs %d\n", s.CompletedRuns)

	fmt.Fprintf(rw, "# HELP apexhorizons_stock Current resource stock.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_stock gauge\n")
	for _, r := range []struct {
		name string
		v    float64
	}{
		{"energy", s.Energy},
		{"oxygen", s.Oxygen},
		{"food", s.Food},
		{"currency", s.Currency},
		{"science", s.Science},
	} {
		fmt.Fprintf(rw, "apexhorizons_stock{resource=%q} %.3f\n", r.name, r.v)
	}

	fmt.Fprintf(rw, "# HELP apexhorizons_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_step_ms gauge\n")
	fmt.Fprintf(rw, "apexhorizons_step_ms %.3f\n", s.StepSeconds*1000)

	fmt.Fprintf(rw, "# HELP apexhorizons_autosaves_total Saves handed to the snapshot writer.\n")
	fmt.Fprintf(rw, "# TYPE apexhorizons_autosaves_total counter\n")
	fmt.Fprintf(rw, "apexhorizons_autosaves_total %d\n", s.Autosaves)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
