package events

import (
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
)

// StarterCandidates are tried in order when placing inherited starters around the hub.
var StarterCandidates = []grid.Coord{
	{X: 0, Z: 1}, {X: 1, Z: 1}, {X: 0, Z: -1}, {X: 1, Z: -1},
	{X: -1, Z: 0}, {X: 2, Z: 0}, {X: -1, Z: 1}, {X: 2, Z: 1},
	{X: -1, Z: -1}, {X: 2, Z: -1}, {X: 0, Z: 2}, {X: 1, Z: 2},
}

type StarterPlacement struct {
	Kind catalogs.Kind
	Cell grid.Coord
}

// PlaceStarters assigns each starter the next free candidate cell. Starters
// that do not fit are dropped, as are unknown gift ids.
func PlaceStarters(gifts catalogs.GiftCatalog, starters []string, occupied func(grid.Coord) bool) []StarterPlacement {
	byID := make(map[string]catalogs.Kind, len(gifts.Gifts))
	for _, g := range gifts.Gifts {
		byID[g.ID] = g.Kind
	}
	var out []StarterPlacement
	idx := 0
	for _, id := range starters {
		kind, ok := byID[id]
		if !ok {
			continue
		}
		for idx < len(StarterCandidates) {
			c := StarterCandidates[idx]
			idx++
			if !occupied(c) {
				out = append(out, StarterPlacement{Kind: kind, Cell: c})
				break
			}
		}
	}
	return out
}

func FindGift(gifts catalogs.GiftCatalog, id string) (catalogs.GiftDef, bool) {
	for _, g := range gifts.Gifts {
		if g.ID == id {
			return g, true
		}
	}
	return catalogs.GiftDef{}, false
}
