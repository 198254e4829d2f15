package ingest

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/MalithGihan/mindmap-service/pkg/types"
)

type mxfile struct {
	XMLName xml.Name  `xml:"mxfile"`
	Diagram []diagram `xml:"diagram"`
}
type diagram struct {
	Name         string        `xml:"name,attr"`
	MxGraphModel *mxGraphModel `xml:"mxGraphModel"`
	Compressed   string        `xml:",chardata"`
}
type mxGraphModel struct {
	Root root `xml:"root"`
}
type root struct {
	Cells []mxCell `xml:"mxCell"`
}

type mxCell struct {
	ID       string      `xml:"id,attr"`
	Value    string      `xml:"value,attr"`
	Vertex   string      `xml:"vertex,attr"` // "1" if node
	Edge     string      `xml:"edge,attr"`   // "1" if edge
	Source   string      `xml:"source,attr"`
	Target   string      `xml:"target,attr"`
	Parent   string      `xml:"parent,attr"`
	Geometry *mxGeometry `xml:"mxGeometry"`
}

type mxGeometry struct {
	X        float64   `xml:"x,attr"`
	Y        float64   `xml:"y,attr"`
	Width    float64   `xml:"width,attr"`
	Height   float64   `xml:"height,attr"`
	Relative string    `xml:"relative,attr"` // "1" for edge-relative label positions
	Points   []mxPoint `xml:"Array>mxPoint"`
}

type mxPoint struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

var ErrNoDiagram = errors.New("drawio: no diagram found")

// ParseDrawIO converts the first page of a draw.io document into a dataset.
// Vertices become nodes centred in their geometry; edges become connections
// curving through their first waypoint, or straight through the midpoint.
// Edge labels and unlabelled group containers are not nodes. Children of groups
// are placed in absolute coordinates.
func ParseDrawIO(b []byte) (types.Dataset, error) {
	model, err := firstModel(b)
	if err != nil {
		return types.Dataset{}, err
	}

	cells := make(map[string]mxCell, len(model.Root.Cells))
	containers := map[string]bool{}
	for _, c := range model.Root.Cells {
		cells[c.ID] = c
	}
	for _, c := range model.Root.Cells {
		if c.Vertex == "1" && cells[c.Parent].Vertex == "1" {
			containers[c.Parent] = true
		}
	}

	nodes := []types.Node{}
	var edges []mxCell
	byID := map[types.NodeID]types.Location{}

	for _, c := range model.Root.Cells {
		switch {
		case c.Vertex == "1":
			if cells[c.Parent].Edge == "1" {
				continue
			}
			g := c.Geometry
			if g == nil {
				g = &mxGeometry{}
			}
			if g.Relative == "1" {
				continue
			}
			label := htmlUnescape(stripHTML(c.Value))
			if label == "" {
				if containers[c.ID] {
					continue
				}
				label = "node-" + c.ID
			}
			ox, oy := origin(cells, c.Parent)
			loc := types.Location{X: ox + g.X + g.Width/2, Y: oy + g.Y + g.Height/2}
			byID[types.NodeID(c.ID)] = loc
			nodes = append(nodes, types.Node{
				ID:       types.NodeID(c.ID),
				Location: loc,
				Title:    types.Title{Text: label, MaxWidth: g.Width},
			})
		case c.Edge == "1":
			edges = append(edges, c)
		}
	}

	conns := []types.Connection{}
	for _, e := range edges {
		start, okStart := byID[types.NodeID(e.Source)]
		end, okEnd := byID[types.NodeID(e.Target)]
		if !okStart || !okEnd {
			// dangling in draw.io: an edge with a loose end
			continue
		}
		ctrl := types.Location{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}
		if e.Geometry != nil && len(e.Geometry.Points) > 0 {
			ox, oy := origin(cells, e.Parent)
			ctrl = types.Location{X: ox + e.Geometry.Points[0].X, Y: oy + e.Geometry.Points[0].Y}
		}
		conns = append(conns, types.Connection{
			StartNodeID:    types.NodeID(e.Source),
			EndNodeID:      types.NodeID(e.Target),
			WayPointOffset: types.Location{X: ctrl.X - start.X, Y: ctrl.Y - start.Y},
		})
	}
	return types.Dataset{Nodes: nodes, Connections: conns}, nil
}

// origin is the absolute position of a container's coordinate space: the sum of
// the offsets of parent vertices up to the layer.
func origin(cells map[string]mxCell, parent string) (x, y float64) {
	for i := 0; parent != "" && i < len(cells); i++ {
		p, ok := cells[parent]
		if !ok || p.Vertex != "1" {
			break
		}
		if p.Geometry != nil && p.Geometry.Relative != "1" {
			x += p.Geometry.X
			y += p.Geometry.Y
		}
		parent = p.Parent
	}
	return x, y
}

func firstModel(b []byte) (*mxGraphModel, error) {
	var doc mxfile
	if err := xml.Unmarshal(b, &doc); err != nil {
		// bare <mxGraphModel> exports
		var m mxGraphModel
		if err2 := xml.Unmarshal(b, &m); err2 != nil {
			return nil, fmt.Errorf("drawio: %w", err)
		}
		return &m, nil
	}
	if len(doc.Diagram) == 0 {
		return nil, ErrNoDiagram
	}
	d := doc.Diagram[0]
	if d.MxGraphModel != nil {
		return d.MxGraphModel, nil
	}
	return inflate(strings.TrimSpace(d.Compressed))
}

// inflate decodes draw.io's compressed page format: base64, raw deflate, URL encoding.
func inflate(s string) (*mxGraphModel, error) {
	if s == "" {
		return nil, ErrNoDiagram
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("drawio: decode page: %w", err)
	}
	raw, err := io.ReadAll(flate.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("drawio: inflate page: %w", err)
	}
	plain, err := url.PathUnescape(string(raw))
	if err != nil {
		return nil, fmt.Errorf("drawio: unescape page: %w", err)
	}
	var m mxGraphModel
	if err := xml.Unmarshal([]byte(plain), &m); err != nil {
		return nil, fmt.Errorf("drawio: %w", err)
	}
	return &m, nil
}

func stripHTML(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	// draw.io often wraps labels like <div>Service</div>
	s = strings.ReplaceAll(s, "<br>", " ")
	s = strings.ReplaceAll(s, "<div>", "")
	s = strings.ReplaceAll(s, "</div>", "")
	return s
}

func htmlUnescape(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
