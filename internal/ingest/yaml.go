package ingest

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/MalithGihan/mindmap-service/internal/validate"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

// ParseYAML reads a dataset written in YAML. The document is re-encoded as
// JSON so it goes through the same schema as a JSON payload.
func ParseYAML(b []byte) (types.Dataset, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return types.Dataset{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return types.Dataset{}, fmt.Errorf("yaml document is not representable as JSON: %w", err)
	}
	return validate.DecodePayload(raw)
}
