package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeID identifies a node. JSON accepts a string or a number; both keep their
// canonical text so 1 and "1" refer to the same node.
type NodeID string

func (id *NodeID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("node id must be a string or number: %w", err)
	}
	*id = NodeID(n.String())
	return nil
}

// MaxCoordinate bounds every coordinate and width accepted at the boundary, so
// viewport arithmetic stays exact in float64 and int.
const MaxCoordinate = 1e15

type Location struct {
	X float64 `json:"x" validate:"gte=-1e15,lte=1e15"`
	Y float64 `json:"y" validate:"gte=-1e15,lte=1e15"`
}

type Title struct {
	Text     string  `json:"text"`
	MaxWidth float64 `json:"maxWidth" validate:"gte=0,lte=1e15"`
}

type Node struct {
	ID       NodeID   `json:"id" validate:"required"`
	Location Location `json:"location"`
	Title    Title    `json:"title"`
}

type Connection struct {
	StartNodeID    NodeID   `json:"startNodeID" validate:"required"`
	EndNodeID      NodeID   `json:"endNodeID" validate:"required"`
	WayPointOffset Location `json:"wayPointOffset"`
}

// Dataset is the node and connection set backing one render. Once published it is
// never mutated; a new load builds a new value.
type Dataset struct {
	Nodes       []Node       `json:"nodes" validate:"dive"`
	Connections []Connection `json:"connections" validate:"dive"`
	Ready       bool         `json:"-"`
}

// NewDataset copies nodes and connections into a ready dataset.
func NewDataset(nodes []Node, connections []Connection) Dataset {
	ds := Dataset{
		Nodes:       make([]Node, len(nodes)),
		Connections: make([]Connection, len(connections)),
		Ready:       true,
	}
	copy(ds.Nodes, nodes)
	copy(ds.Connections, connections)
	return ds
}

// NodeIndex maps node ids to nodes for O(1) lookup during a render pass.
func (d Dataset) NodeIndex() map[NodeID]Node {
	idx := make(map[NodeID]Node, len(d.Nodes))
	for _, n := range d.Nodes {
		idx[n.ID] = n
	}
	return idx
}
