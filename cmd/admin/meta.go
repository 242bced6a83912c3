package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"apexhorizons.ai/internal/persistence/kv"
	"apexhorizons.ai/internal/sim/station"
)

// metaCmd prints or resets the meta progression kept in the server's store.
// Run it while the server is stopped.
func metaCmd(args []string) {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kvPath := fs.String("kv", "", "sqlite key-value store path (default: <data>/station.sqlite)")
	reset := fs.Bool("reset", false, "clear completed runs, starters and the sandbox hint")
	dropSave := fs.Bool("drop_save", false, "also delete the stored save")
	_ = fs.Parse(args)

	p := *kvPath
	if p == "" {
		p = filepath.Join(*dataDir, "station.sqlite")
	}
	db, err := kv.OpenSQLite(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open kv:", err)
		os.Exit(1)
	}
	defer db.Close()

	meta, err := runMeta(db, *reset, *dropSave)
	if err != nil {
		fmt.Fprintln(os.Stderr, "meta:", err)
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(meta)
}

func runMeta(s kv.Store, reset, dropSave bool) (station.Meta, error) {
	m := kv.NewMetaStore(s)
	if reset {
		if err := m.SaveMeta(station.Meta{}); err != nil {
			return station.Meta{}, err
		}
	}
	if dropSave {
		if err := s.Delete(kv.KeySave); err != nil {
			return station.Meta{}, err
		}
	}
	return m.LoadMeta()
}
