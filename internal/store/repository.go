package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i474232898/wetter/internal/weather"
)

// Repository persists the raw store.
type Repository interface {
	Load(ctx context.Context) (Raw, error)
	Save(ctx context.Context, raw Raw) error
}

// Open loads the persisted store from repo and checks its schema.
func Open(ctx context.Context, repo Repository) (*Store, error) {
	raw, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Load(raw)
}

// Persist writes s back to repo.
func Persist(ctx context.Context, repo Repository, s *Store) error {
	return repo.Save(ctx, s.Serialize())
}

// JSONFile keeps the store in a single JSON document.
type JSONFile struct {
	Path string
}

// NewJSONFile returns a repository backed by the file at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// Load reads the file. A missing file is created with the default dataset.
func (j *JSONFile) Load(ctx context.Context) (Raw, error) {
	if err := ctx.Err(); err != nil {
		return Raw{}, err
	}

	data, err := os.ReadFile(j.Path)
	if errors.Is(err, fs.ErrNotExist) {
		raw := Default()
		if err := j.Save(ctx, raw); err != nil {
			return Raw{}, fmt.Errorf("seed default store: %w", err)
		}
		return raw, nil
	}
	if err != nil {
		return Raw{}, fmt.Errorf("read store %s: %w", j.Path, err)
	}

	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return Raw{}, &weather.SchemaError{Reason: "store is not valid JSON", Err: err}
	}
	return raw, nil
}

// Save writes the document atomically (temporary file + rename).
func (j *JSONFile) Save(ctx context.Context, raw Raw) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(j.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(j.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.Path); err != nil {
		return fmt.Errorf("replace store %s: %w", j.Path, err)
	}
	return nil
}
