// Package file provides filesystem-backed adapters: a directory of manifest
// documents and a directory of entity records.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.EntityStore using the local filesystem.
// It stores entities as JSON files in a configured directory.
//
// The version check and the write are serialized by an in-process mutex, so
// the store is safe for one process; it does not coordinate across processes.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".manifold/entities".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".manifold", "entities")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("entity id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid entity id %q", id)
	}
	return filepath.Join(s.BasePath, id+".json"), nil
}

// Save persists the entity to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	destPath, err := s.path(entity.ID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedVersion != "" {
		current, err := s.read(destPath)
		if errors.Is(err, domain.ErrEntityNotFound) {
			return "", fmt.Errorf("entity %s: %w", entity.ID, domain.ErrVersionConflict)
		}
		if err != nil {
			return "", err
		}
		if current.Version != expectedVersion {
			return "", fmt.Errorf("entity %s: %w", entity.ID, domain.ErrVersionConflict)
		}
	}

	stored := entity.Clone()
	stored.Version = uuid.NewString()

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure entity directory: %w", err)
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+entity.ID+"-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return "", fmt.Errorf("failed to remove existing entity file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	return stored.Version, nil
}

// Load retrieves the entity from its JSON file.
func (s *Store) Load(ctx context.Context, id string) (*domain.Entity, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.read(filePath)
}

func (s *Store) read(filePath string) (*domain.Entity, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to read entity file: %w", err)
	}

	var entity domain.Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return &entity, nil
}

// Delete removes the entity file.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete entity file: %w", err)
	}

	return nil
}

// List returns all stored entity ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
