package kv

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/sim/station"
)

const (
	KeyCompletedRuns  = "apex_horizons_completed_runs"
	KeyStarters       = "apex_horizons_starters"
	KeyVisitedSandbox = "apex_horizons_visited_sandbox"
	KeySave           = "apex_horizons_save"
)

// MetaStore keeps station meta progression and the latest save in a Store.
// It satisfies station.MetaStore.
type MetaStore struct {
	kv Store
}

func NewMetaStore(s Store) *MetaStore { return &MetaStore{kv: s} }

func (m *MetaStore) SaveMeta(meta station.Meta) error {
	if err := m.kv.Put(KeyCompletedRuns, []byte(strconv.Itoa(meta.CompletedRuns))); err != nil {
		return err
	}
	starters := meta.Starters
	if starters == nil {
		starters = []string{}
	}
	b, err := json.Marshal(starters)
	if err != nil {
		return err
	}
	if err := m.kv.Put(KeyStarters, b); err != nil {
		return err
	}
	if meta.VisitedSandbox {
		return m.kv.Put(KeyVisitedSandbox, []byte("true"))
	}
	return m.kv.Delete(KeyVisitedSandbox)
}

// LoadMeta reads meta progression. Missing or unparsable values read as zero.
func (m *MetaStore) LoadMeta() (station.Meta, error) {
	var meta station.Meta

	b, err := m.get(KeyCompletedRuns)
	if err != nil {
		return meta, err
	}
	if n, err := strconv.Atoi(strings.TrimSpace(string(b))); err == nil && n > 0 {
		meta.CompletedRuns = n
	}

	b, err = m.get(KeyStarters)
	if err != nil {
		return meta, err
	}
	if len(b) > 0 {
		var starters []string
		if json.Unmarshal(b, &starters) == nil {
			meta.Starters = starters
		}
	}

	b, err = m.get(KeyVisitedSandbox)
	if err != nil {
		return meta, err
	}
	meta.VisitedSandbox = string(b) == "true"
	return meta, nil
}

func (m *MetaStore) StoreSave(sv snapshot.SaveV1) error {
	b, err := snapshot.Marshal(sv)
	if err != nil {
		return err
	}
	return m.kv.Put(KeySave, b)
}

// LoadSave returns the stored save, the number of skipped module entries, and
// whether a save existed.
func (m *MetaStore) LoadSave() (snapshot.SaveV1, int, bool, error) {
	b, err := m.get(KeySave)
	if err != nil || len(b) == 0 {
		return snapshot.SaveV1{}, 0, false, err
	}
	sv, skipped, err := snapshot.Unmarshal(b)
	if err != nil {
		return snapshot.SaveV1{}, 0, true, err
	}
	return sv, skipped, true, nil
}

func (m *MetaStore) get(key string) ([]byte, error) {
	b, err := m.kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}
