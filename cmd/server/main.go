package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"apexhorizons.ai/internal/persistence/kv"
	persistlog "apexhorizons.ai/internal/persistence/log"
	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station"
	"apexhorizons.ai/internal/sim/tuning"
	"apexhorizons.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "station seed (used only when starting fresh)")
		runID      = flag.String("run", "", "run id (default: random)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		kvPath     = flag.String("kv", "", "sqlite key-value store path (default: <data>/station.sqlite)")
		disableKV  = flag.Bool("disable_kv", false, "keep meta progression and saves in memory only")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "restore the latest save if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	snapDir := filepath.Join(*dataDir, "snapshots")

	var store kv.Store
	if *disableKV {
		store = kv.NewMemory()
	} else {
		p := strings.TrimSpace(*kvPath)
		if p == "" {
			p = filepath.Join(*dataDir, "station.sqlite")
		}
		db, err := kv.OpenSQLite(p)
		if err != nil {
			logger.Fatalf("open kv: %v", err)
		}
		store = db
	}
	defer store.Close()
	metaStore := kv.NewMetaStore(store)

	id := strings.TrimSpace(*runID)
	if id == "" {
		id = uuid.NewString()
	}
	st, err := station.New(station.Config{RunID: id, Seed: *seed, Tuning: tune}, cats)
	if err != nil {
		logger.Fatalf("station: %v", err)
	}
	src := restoreSource{
		snapshotPath: strings.TrimSpace(*snapPath),
		snapshotDir:  snapDir,
		loadLatest:   *loadLatest,
	}
	if err := restore(st, metaStore, src, logger); err != nil {
		logger.Fatalf("restore: %v", err)
	}
	st.SetMetaStore(metaStore)

	tickLog := persistlog.NewTickLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer tickLog.Close()
	defer auditLog.Close()
	st.SetTickLogger(tickLog)
	st.SetAuditLogger(auditLog)

	runner := station.NewRunner(st, station.RunnerConfig{
		TickRateHz:         tune.TickRateHz,
		AutosaveEveryTicks: uint64(tune.AutosaveEverySeconds * float64(tune.TickRateHz)),
		TuningDigest:       fileDigest(tp),
	}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	saves := &saver{
		dir:      snapDir,
		dataDir:  *dataDir,
		meta:     metaStore,
		logger:   logger,
		gameOver: st.Phase() == station.PhaseGameOver,
	}
	snapCh := make(chan snapshot.SaveV1, 2)
	runner.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sv := <-snapCh:
				if _, err := saves.Save(sv); err != nil {
					logger.Printf("autosave tick=%d: %v", sv.Header.Tick, err)
				}
			}
		}
	}()

	go func() {
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("station stopped: %v", err)
		}
	}()

	wsSrv, err := ws.NewServer(runner, ws.Config{
		ActsPerSecond: tune.RateLimits.CommandsPerSecond,
		ActBurst:      tune.RateLimits.CommandBurst,
	}, logger)
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}

	enableAdminHTTP := envBool("AH_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	if !enableAdminHTTP {
		logger.Printf("admin endpoints disabled (AH_ENABLE_ADMIN_HTTP=false)")
	}
	mux := newMux(muxDeps{
		runner: runner,
		ws:     wsSrv.Handler(),
		saver:  saves,
		admin:  enableAdminHTTP,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s run=%s seed=%d tick=%d", *addr, st.RunID(), st.Seed(), st.Tick())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type restoreSource struct {
	snapshotPath string
	snapshotDir  string
	loadLatest   bool
}

// restore loads the station from an explicit snapshot, else the save kept in
// the store, else the newest snapshot file. Meta progression in the store is
// applied on top when present.
func restore(st *station.Station, m *kv.MetaStore, src restoreSource, logger *log.Logger) error {
	meta, err := m.LoadMeta()
	if err != nil {
		return err
	}

	var (
		sv      snapshot.SaveV1
		skipped int
		from    string
	)
	switch {
	case src.snapshotPath != "":
		sv, skipped, err = snapshot.ReadSnapshot(src.snapshotPath)
		if err != nil {
			return err
		}
		from = filepath.Base(src.snapshotPath)
	case src.loadLatest:
		var ok bool
		sv, skipped, ok, err = m.LoadSave()
		if err != nil {
			logger.Printf("stored save unreadable, ignoring: %v", err)
			ok = false
		}
		if ok {
			from = "kv"
		} else if p := snapshot.Latest(src.snapshotDir); p != "" {
			sv, skipped, err = snapshot.ReadSnapshot(p)
			if err != nil {
				return err
			}
			from = filepath.Base(p)
		}
	}

	if from != "" {
		rep, err := st.ImportSave(sv)
		if err != nil {
			return err
		}
		logger.Printf("resumed from %s tick=%d modules=%d skipped=%d", from, st.Tick(), rep.Modules, rep.Skipped+skipped)
		for _, r := range rep.Reasons {
			logger.Printf("skipped module: %s", r)
		}
	}
	if meta.CompletedRuns > 0 || len(meta.Starters) > 0 || meta.VisitedSandbox {
		st.SetMeta(meta)
	}
	return nil
}

func fileDigest(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
