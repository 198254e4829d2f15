package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MalithGihan/mindmap-service/internal/markup"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

const (
	// LabelHeight is the fixed height of a node label box.
	LabelHeight = 50
	labelHalf   = LabelHeight / 2
)

// Path is the curve drawn for one connection.
type Path struct {
	Start, End types.NodeID
	D          string
}

// Label is a node title overlay. X and Y are the top-left corner of the box.
type Label struct {
	ID            types.NodeID
	X, Y          float64
	Width, Height float64
	Content       markup.Markup
}

// Transform is the SVG translation placing the label box.
func (l Label) Transform() string {
	return fmt.Sprintf("translate(%s, %s)", num(l.X), num(l.Y))
}

// ConnectionPath returns the quadratic Bezier path from start to end whose control
// point is start displaced by offset.
func ConnectionPath(start, end types.Location, offset types.Location) string {
	return strings.Join([]string{
		"M", num(start.X), num(start.Y),
		"Q", num(start.X + offset.X), num(start.Y + offset.Y),
		",", num(end.X), num(end.Y),
	}, " ")
}

// PlaceLabel centres a label box horizontally on the node and vertically on
// the fixed half height.
func PlaceLabel(n types.Node) (x, y float64) {
	return n.Location.X - n.Title.MaxWidth/2, n.Location.Y - labelHalf
}

func labelFor(n types.Node) Label {
	x, y := PlaceLabel(n)
	return Label{
		ID:      n.ID,
		X:       x,
		Y:       y,
		Width:   n.Title.MaxWidth,
		Height:  LabelHeight,
		Content: markup.Title(n.Title.Text),
	}
}

// num formats coordinates with the shortest exact representation.
func num(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
