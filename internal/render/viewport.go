package render

import (
	"fmt"
	"math"

	"github.com/MalithGihan/mindmap-service/pkg/types"
)

// Padding keeps nodes near the extremes and curve control points inside the view.
const Padding = 150

// Viewport is an SVG viewBox rectangle.
type Viewport struct {
	MinX, MinY, Width, Height int
}

func (v Viewport) String() string {
	return fmt.Sprintf("%d %d %d %d", v.MinX, v.MinY, v.Width, v.Height)
}

// ComputeViewport derives the viewBox from node locations. Not-ready or empty
// datasets yield the zero viewport.
func ComputeViewport(nodes []types.Node, ready bool) Viewport {
	if !ready || len(nodes) == 0 {
		return Viewport{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		x, y := clamp(n.Location.X), clamp(n.Location.Y)
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}

	x := math.Round(minX - Padding)
	y := math.Round(minY - Padding)
	return Viewport{
		MinX:   int(x),
		MinY:   int(y),
		Width:  int(math.Round(maxX-x)) + Padding,
		Height: int(math.Round(maxY-y)) + Padding,
	}
}

// clamp keeps unvalidated coordinates inside the range where int conversion is
// defined. NaN collapses to zero.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > types.MaxCoordinate:
		return types.MaxCoordinate
	case v < -types.MaxCoordinate:
		return -types.MaxCoordinate
	}
	return v
}

// ViewBox returns the "minX minY width height" attribute value.
func ViewBox(nodes []types.Node, ready bool) string {
	return ComputeViewport(nodes, ready).String()
}
