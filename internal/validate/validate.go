package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/MalithGihan/mindmap-service/pkg/types"
)

const schemaURL = "file:///mindmap.schema.json"

//go:embed schema/mindmap.schema.json
var schemaJSON []byte

var (
	once    sync.Once
	schema  *jsonschema.Schema
	loadErr error

	structs = validator.New()
)

func load() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		loadErr = err
		return
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		loadErr = err
		return
	}
	schema = s
}

// Payload checks a raw dataset document against the mind map schema.
func Payload(raw []byte) error {
	once.Do(load)
	if loadErr != nil {
		return loadErr
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

// DecodePayload validates raw and decodes it into a dataset that is not yet ready.
func DecodePayload(raw []byte) (types.Dataset, error) {
	if err := Payload(raw); err != nil {
		return types.Dataset{}, err
	}
	var ds types.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return types.Dataset{}, err
	}
	if err := Dataset(ds.Nodes, ds.Connections); err != nil {
		return types.Dataset{}, err
	}
	return ds, nil
}

// Dataset validates caller supplied nodes and connections at the boundary.
// Connections pointing at unknown nodes are left to the renderer.
func Dataset(nodes []types.Node, connections []types.Connection) error {
	ds := types.Dataset{Nodes: nodes, Connections: connections}
	if err := structs.Struct(ds); err != nil {
		return formatValidationError(err)
	}
	seen := make(map[types.NodeID]struct{}, len(nodes))
	for i, n := range nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("Nodes[%d]: duplicate node id %q", i, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Namespace())
		case "gte":
			return fmt.Errorf("%s: must be at least %s", e.Namespace(), e.Param())
		case "lte":
			return fmt.Errorf("%s: must be at most %s", e.Namespace(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Namespace(), e.Tag())
		}
	}
	return err
}
