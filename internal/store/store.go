package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/MalithGihan/mindmap-service/pkg/types"
)

var ErrNotFound = errors.New("map not found")

// FS keeps one directory per map under Root.
type FS struct{ Root string }

func New(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{Root: root}, nil
}

func (s *FS) MapDir(id string) string { return filepath.Join(s.Root, id) }

func (s *FS) mapFile(id string) string { return filepath.Join(s.MapDir(id), "map.json") }

// Save stores ds under a new id.
func (s *FS) Save(ds types.Dataset) (string, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(s.MapDir(id), 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.mapFile(id), b, 0o644); err != nil {
		return "", err
	}
	return id, nil
}

// Load reads the stored dataset. The result is not marked ready.
func (s *FS) Load(id string) (types.Dataset, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Dataset{}, ErrNotFound
	}
	b, err := os.ReadFile(s.mapFile(id))
	if errors.Is(err, os.ErrNotExist) {
		return types.Dataset{}, ErrNotFound
	}
	if err != nil {
		return types.Dataset{}, err
	}
	var ds types.Dataset
	if err := json.Unmarshal(b, &ds); err != nil {
		return types.Dataset{}, fmt.Errorf("decode map %s: %w", id, err)
	}
	return ds, nil
}
