package grid

import (
	"math"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Tile footprint of one cell in world units.
const (
	TileWidth  = 2.0
	TileHeight = 1.0
)

// Coord is an integer cell of the unbounded station grid.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func (c Coord) ToArray() [2]int { return [2]int{c.X, c.Z} }

func (c Coord) Add(dx, dz int) Coord { return Coord{X: c.X + dx, Z: c.Z + dz} }

// Vec3 is a world-space position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ToWorld projects a cell into isometric world space.
func ToWorld(c Coord) Vec3 {
	return Vec3{
		X: float64(c.X-c.Z) * (TileWidth / 2),
		Y: 0,
		Z: float64(c.X+c.Z) * (TileHeight / 2),
	}
}

// FromWorld inverts ToWorld, snapping to the nearest cell.
func FromWorld(v Vec3) Coord {
	a := v.X / (TileWidth / 2)  // x - z
	b := v.Z / (TileHeight / 2) // x + z
	return Coord{
		X: int(math.Round((a + b) / 2)),
		Z: int(math.Round((b - a) / 2)),
	}
}

// Neighbors returns the four orthogonal neighbours: E, W, S, N.
func Neighbors(c Coord) [4]Coord {
	return [4]Coord{
		{X: c.X + 1, Z: c.Z},
		{X: c.X - 1, Z: c.Z},
		{X: c.X, Z: c.Z + 1},
		{X: c.X, Z: c.Z - 1},
	}
}

func Manhattan(a, b Coord) int {
	return abs(a.X-b.X) + abs(a.Z-b.Z)
}

// StepToward moves one cell from `from` toward `to`, closing the X gap first.
// It returns from unchanged when the cells are equal.
func StepToward(from, to Coord) Coord {
	switch {
	case from.X < to.X:
		from.X++
	case from.X > to.X:
		from.X--
	case from.Z < to.Z:
		from.Z++
	case from.Z > to.Z:
		from.Z--
	}
	return from
}

// Cardinal returns the four cardinal points at radius r around center,
// clockwise starting north.
func Cardinal(center Coord, r int) [4]Coord {
	return [4]Coord{
		{X: center.X, Z: center.Z - r},
		{X: center.X + r, Z: center.Z},
		{X: center.X, Z: center.Z + r},
		{X: center.X - r, Z: center.Z},
	}
}

// RingCell returns the cell on the circle of radius r at the given angle.
func RingCell(center Coord, r int, angle float64) Coord {
	return Coord{
		X: center.X + int(math.Round(math.Cos(angle)*float64(r))),
		Z: center.Z + int(math.Round(math.Sin(angle)*float64(r))),
	}
}

// Set is an unordered set of cells.
type Set = mapset.Set[Coord]

func NewSet() Set { return mapset.New[Coord]() }

// Sorted returns the members of s ordered by (Z, X).
func Sorted(s Set) []Coord {
	out := make([]Coord, 0, s.Size())
	s.Each(func(c Coord) {
		out = append(out, c)
	})
	SortCoords(out)
	return out
}

func SortCoords(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Z != cs[j].Z {
			return cs[i].Z < cs[j].Z
		}
		return cs[i].X < cs[j].X
	})
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
