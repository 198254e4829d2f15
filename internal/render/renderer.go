package render

import (
	"fmt"
	"log"

	"github.com/MalithGihan/mindmap-service/internal/metrics"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

// Policy selects how connections with a missing endpoint are handled.
type Policy int

const (
	// PolicySkip drops the connection, logs it and keeps rendering.
	PolicySkip Policy = iota
	// PolicyStrict aborts the render pass with a *DanglingReferenceError.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "skip"
}

// DanglingReferenceError reports a connection whose endpoint is not in the node set.
type DanglingReferenceError struct {
	Index      int
	Connection types.Connection
	Missing    types.NodeID
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("connection %d (%s -> %s) references unknown node %q",
		e.Index, e.Connection.StartNodeID, e.Connection.EndNodeID, e.Missing)
}

// Frame is everything needed to draw one dataset snapshot.
type Frame struct {
	ViewBox string
	Paths   []Path
	Labels  []Label
	Skipped []*DanglingReferenceError
}

// Renderer turns datasets into frames. The zero value skips dangling connections
// and logs through the standard logger.
type Renderer struct {
	Policy  Policy
	Logger  *log.Logger
	Metrics *metrics.Registry
}

func (r *Renderer) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Render computes the viewBox, curves and labels from a single snapshot. A dataset
// that is not ready renders as an empty map.
func (r *Renderer) Render(ds types.Dataset) (Frame, error) {
	f := Frame{ViewBox: ViewBox(ds.Nodes, ds.Ready)}
	if !ds.Ready {
		return f, nil
	}
	paths, skipped, err := r.paths(ds)
	if err != nil {
		return Frame{}, err
	}
	f.Paths = paths
	f.Skipped = skipped
	f.Labels = Labels(ds)
	return f, nil
}

// Paths returns one curve per connection, applying the renderer's policy to
// connections with missing endpoints.
func (r *Renderer) Paths(ds types.Dataset) ([]Path, error) {
	paths, _, err := r.paths(ds)
	return paths, err
}

func (r *Renderer) paths(ds types.Dataset) ([]Path, []*DanglingReferenceError, error) {
	nodes := ds.NodeIndex()
	paths := make([]Path, 0, len(ds.Connections))
	var skipped []*DanglingReferenceError

	for i, c := range ds.Connections {
		start, okStart := nodes[c.StartNodeID]
		end, okEnd := nodes[c.EndNodeID]
		if !okStart || !okEnd {
			missing := c.StartNodeID
			if okStart {
				missing = c.EndNodeID
			}
			derr := &DanglingReferenceError{Index: i, Connection: c, Missing: missing}
			if r.Policy == PolicyStrict {
				return nil, nil, derr
			}
			r.logf("render: skipping %v", derr)
			skipped = append(skipped, derr)
			continue
		}
		paths = append(paths, Path{
			Start: c.StartNodeID,
			End:   c.EndNodeID,
			D:     ConnectionPath(start.Location, end.Location, c.WayPointOffset),
		})
	}
	if len(skipped) > 0 && r.Metrics != nil {
		r.Metrics.RecordDangling(len(skipped))
	}
	return paths, skipped, nil
}

// Labels returns the title overlay of every node in dataset order.
func Labels(ds types.Dataset) []Label {
	labels := make([]Label, 0, len(ds.Nodes))
	for _, n := range ds.Nodes {
		labels = append(labels, labelFor(n))
	}
	return labels
}
