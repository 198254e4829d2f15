package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MalithGihan/mindmap-service/internal/validate"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

// DetectType maps a file name to an importer by extension.
func DetectType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".drawio", ".xml":
		return "drawio"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "unknown"
	}
}

// Import decodes an uploaded file into a validated dataset that is not yet ready.
func Import(name string, b []byte) (types.Dataset, error) {
	var ds types.Dataset
	var err error
	switch DetectType(name) {
	case "drawio":
		ds, err = ParseDrawIO(b)
	case "json":
		return validate.DecodePayload(b)
	case "yaml":
		return ParseYAML(b)
	default:
		return types.Dataset{}, fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if err != nil {
		return types.Dataset{}, err
	}
	if err := validate.Dataset(ds.Nodes, ds.Connections); err != nil {
		return types.Dataset{}, err
	}
	return ds, nil
}
