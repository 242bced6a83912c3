package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Kind string

const (
	KindSolarPanel      Kind = "SOLAR_PANEL"
	KindOxygenReserve   Kind = "OXYGEN_RESERVE"
	KindDormitory       Kind = "DORMITORY"
	KindGreenhouse      Kind = "GREENHOUSE"
	KindBattery         Kind = "BATTERY"
	KindRadioAntenna    Kind = "RADIO_ANTENNA"
	KindRecycling       Kind = "RECYCLING"
	KindCryptoGenerator Kind = "CRYPTO_GENERATOR"
	KindScienceLab      Kind = "SCIENCE_LAB"
	KindJumpDrive       Kind = "JUMP_DRIVE"
	KindDroneHangar     Kind = "DRONE_HANGAR"
)

// AllKinds is the shop and palette order.
var AllKinds = []Kind{
	KindCryptoGenerator,
	KindSolarPanel,
	KindOxygenReserve,
	KindDormitory,
	KindGreenhouse,
	KindBattery,
	KindRecycling,
	KindRadioAntenna,
	KindScienceLab,
	KindDroneHangar,
	KindJumpDrive,
}

func (k Kind) Valid() bool {
	for _, v := range AllKinds {
		if v == k {
			return true
		}
	}
	return false
}

type Catalogs struct {
	Modules ModuleCatalog
	Boons   BoonCatalog
	Goals   GoalCatalog
	Trades  TradeCatalog
	Gifts   GiftCatalog
}

type ModuleCatalog struct {
	Order  []Kind
	ByKind map[Kind]ModuleDef
	Digest string
}

// ModuleDef holds the static attributes every new instance of a kind starts with.
type ModuleDef struct {
	Kind Kind    `json:"kind"`
	Name string  `json:"name"`
	Cost float64 `json:"cost"`

	EnergyGenerated    float64 `json:"energy_generated,omitempty"`
	EnergyConsumption  float64 `json:"energy_consumption,omitempty"`
	OxygenProduction   float64 `json:"oxygen_production,omitempty"`
	OxygenConsumption  float64 `json:"oxygen_consumption,omitempty"`
	FoodProduction     float64 `json:"food_production,omitempty"`
	FoodConsumption    float64 `json:"food_consumption,omitempty"`
	BaseGenerationRate float64 `json:"base_generation_rate,omitempty"`
	OccupantGenerated  int     `json:"occupant_generated,omitempty"`
	StorageBonus       float64 `json:"storage_bonus,omitempty"`
	ScienceRate        float64 `json:"science_rate,omitempty"`
	IncomeAmount       float64 `json:"income_amount,omitempty"`
	IncomeInterval     float64 `json:"income_interval,omitempty"`
	DroneCount         int     `json:"drone_count,omitempty"`

	// ConnectsTo lists the kinds a new instance may be placed next to.
	// Empty means any kind.
	ConnectsTo []Kind `json:"connects_to,omitempty"`
	// Replaces marks the kind that may be placed over an occupied cell.
	Replaces    bool `json:"replaces,omitempty"`
	Advanced    bool `json:"advanced,omitempty"`
	Purchasable bool `json:"purchasable"`
}

func (d ModuleDef) Universal() bool { return len(d.ConnectsTo) == 0 }

type ModuleCatalogFile struct {
	Modules []ModuleDef `json:"modules"`
}

type BoonCatalog struct {
	Order  []string
	ByID   map[string]BoonDef
	Digest string
}

// BoonDef is a permanent bonus. Effect names are interpreted by the modifiers feature.
type BoonDef struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Effect      string  `json:"effect"`
	Value       float64 `json:"value"`
}

type GoalCatalog struct {
	Templates []GoalTemplate
	Digest    string
}

type GoalTemplate struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Metric string  `json:"metric"`
	Target float64 `json:"target"`
}

type TradeCatalog struct {
	Offers []TradeDef
	Digest string
}

type TradeDef struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	CostRes string  `json:"cost_resource"`
	CostVal float64 `json:"cost_value"`
	GiveRes string  `json:"give_resource"`
	GiveVal float64 `json:"give_value"`
}

type GiftCatalog struct {
	Gifts  []GiftDef
	Digest string
}

type GiftDef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
}

// Load reads every catalog file from configDir. Missing files fall back to the
// built-in defaults; present files must be valid.
func Load(configDir string) (*Catalogs, error) {
	c := Default()

	if err := loadModules(filepath.Join(configDir, "modules.json"), &c.Modules); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "boons.json"), func(raw []byte) error {
		var defs []BoonDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		return c.Boons.set(defs, sha256Hex(raw))
	}); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "goals.json"), func(raw []byte) error {
		var defs []GoalTemplate
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		for _, g := range defs {
			if g.ID == "" || g.Target <= 0 {
				return fmt.Errorf("goal %q: empty id or non-positive target", g.ID)
			}
			if !KnownMetric(g.Metric) {
				return fmt.Errorf("goal %q: unknown metric %q", g.ID, g.Metric)
			}
		}
		c.Goals = GoalCatalog{Templates: defs, Digest: sha256Hex(raw)}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "trades.json"), func(raw []byte) error {
		var defs []TradeDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		for _, t := range defs {
			if t.ID == "" || !KnownResource(t.CostRes) || !KnownResource(t.GiveRes) {
				return fmt.Errorf("trade %q: bad id or resource", t.ID)
			}
		}
		c.Trades = TradeCatalog{Offers: defs, Digest: sha256Hex(raw)}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(configDir, "gifts.json"), func(raw []byte) error {
		var defs []GiftDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return err
		}
		for _, g := range defs {
			if g.ID == "" || !g.Kind.Valid() {
				return fmt.Errorf("gift %q: bad id or kind %q", g.ID, g.Kind)
			}
		}
		c.Gifts = GiftCatalog{Gifts: defs, Digest: sha256Hex(raw)}
		return nil
	}); err != nil {
		return nil, err
	}
	return c, nil
}

func loadJSON(path string, apply func(raw []byte) error) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := apply(raw); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func loadModules(path string, out *ModuleCatalog) error {
	return loadJSON(path, func(raw []byte) error {
		var f ModuleCatalogFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
		for _, d := range f.Modules {
			if !d.Kind.Valid() {
				return fmt.Errorf("unknown kind %q", d.Kind)
			}
			for _, k := range d.ConnectsTo {
				if !k.Valid() {
					return fmt.Errorf("%s: unknown connects_to kind %q", d.Kind, k)
				}
			}
			if d.Cost < 0 {
				return fmt.Errorf("%s: negative cost", d.Kind)
			}
			out.ByKind[d.Kind] = d
		}
		out.Digest = sha256Hex(raw)
		return nil
	})
}

func (b *BoonCatalog) set(defs []BoonDef, digest string) error {
	byID := make(map[string]BoonDef, len(defs))
	order := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("empty boon id")
		}
		if _, dup := byID[d.ID]; dup {
			return fmt.Errorf("duplicate boon id %q", d.ID)
		}
		byID[d.ID] = d
		order = append(order, d.ID)
	}
	b.ByID = byID
	b.Order = order
	b.Digest = digest
	return nil
}

// Def returns the static attributes of k.
func (c *Catalogs) Def(k Kind) (ModuleDef, bool) {
	d, ok := c.Modules.ByKind[k]
	return d, ok
}

// Shop lists purchasable kinds in shop order. Advanced kinds are included only when sandbox is set.
func (c *Catalogs) Shop(sandbox bool) []ModuleDef {
	out := make([]ModuleDef, 0, len(c.Modules.Order))
	for _, k := range c.Modules.Order {
		d, ok := c.Modules.ByKind[k]
		if !ok || !d.Purchasable {
			continue
		}
		if d.Advanced && !sandbox {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Digests returns catalog digests keyed by catalog name, sorted by name.
func (c *Catalogs) Digests() [][2]string {
	m := map[string]string{
		"modules": c.Modules.Digest,
		"boons":   c.Boons.Digest,
		"goals":   c.Goals.Digest,
		"trades":  c.Trades.Digest,
		"gifts":   c.Gifts.Digest,
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([][2]string, 0, len(names))
	for _, n := range names {
		out = append(out, [2]string{n, m[n]})
	}
	return out
}

// Metric names understood by goal templates.
const (
	MetricCurrency    = "currency"
	MetricPopulation  = "population"
	MetricFood        = "food"
	MetricOxygenMax   = "oxygen_max"
	MetricEnergyMax   = "energy_max"
	MetricModules     = "modules"
	MetricGreenhouses = "greenhouses"
	MetricAntennas    = "antennas"
)

func KnownMetric(m string) bool {
	switch m {
	case MetricCurrency, MetricPopulation, MetricFood, MetricOxygenMax, MetricEnergyMax,
		MetricModules, MetricGreenhouses, MetricAntennas:
		return true
	}
	return false
}

// Resource names used by trades.
const (
	ResEnergy   = "energy"
	ResOxygen   = "oxygen"
	ResFood     = "food"
	ResCurrency = "currency"
)

func KnownResource(r string) bool {
	switch r {
	case ResEnergy, ResOxygen, ResFood, ResCurrency:
		return true
	}
	return false
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
