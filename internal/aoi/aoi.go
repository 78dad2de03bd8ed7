// Package aoi defines rectangular areas of interest and point lookup.
package aoi

import (
	"fmt"
	"strings"
)

// Region names with special meaning to the metrics.
const (
	Outside          = "Outside"
	InstructionLabel = "Instruction Label"
)

// Rect is an axis-aligned rectangle with inclusive bounds.
type Rect struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Contains reports whether (x, y) lies inside the rectangle or on its edge.
// Corners may be given in any order.
func (r Rect) Contains(x, y float64) bool {
	minX, maxX := ordered(r.X1, r.X2)
	minY, maxY := ordered(r.Y1, r.Y2)
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", r.X1, r.Y1, r.X2, r.Y2)
}

// AOI is a named screen region.
type AOI struct {
	Name   string
	Bounds Rect
}

// Registry is an ordered list of regions.
type Registry []AOI

// DefaultRegistry returns the built-in assembly station layout.
func DefaultRegistry() Registry {
	return Registry{
		{Name: "Component Bin", Bounds: Rect{X1: 100, Y1: 100, X2: 300, Y2: 300}},
		{Name: InstructionLabel, Bounds: Rect{X1: 320, Y1: 100, X2: 520, Y2: 200}},
		{Name: "Assembly Area", Bounds: Rect{X1: 100, Y1: 320, X2: 520, Y2: 600}},
		{Name: "Tool Tray", Bounds: Rect{X1: 540, Y1: 100, X2: 740, Y2: 600}},
	}
}

// Locate returns the region containing (x, y). Regions are checked in
// registry order and a later match replaces an earlier one, so with
// overlapping regions the last one listed wins.
func (r Registry) Locate(x, y float64) string {
	name := Outside
	for _, a := range r {
		if a.Bounds.Contains(x, y) {
			name = a.Name
		}
	}
	return name
}

// Validate rejects registries that would make lookups ambiguous.
func (r Registry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for i, a := range r {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return fmt.Errorf("aoi %d: name is empty", i)
		}
		if strings.EqualFold(name, Outside) {
			return fmt.Errorf("aoi %d: name %q is reserved", i, Outside)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("aoi %d: duplicate name %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Overlaps lists pairs of regions whose rectangles intersect.
func (r Registry) Overlaps() [][2]string {
	var out [][2]string
	for i := 0; i < len(r); i++ {
		for j := i + 1; j < len(r); j++ {
			if intersects(r[i].Bounds, r[j].Bounds) {
				out = append(out, [2]string{r[i].Name, r[j].Name})
			}
		}
	}
	return out
}

func intersects(a, b Rect) bool {
	aMinX, aMaxX := ordered(a.X1, a.X2)
	aMinY, aMaxY := ordered(a.Y1, a.Y2)
	bMinX, bMaxX := ordered(b.X1, b.X2)
	bMinY, bMaxY := ordered(b.Y1, b.Y2)
	return aMinX <= bMaxX && bMinX <= aMaxX && aMinY <= bMaxY && bMinY <= aMaxY
}

func ordered(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}
