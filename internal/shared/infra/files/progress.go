package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// ProgressFile writes a JSON snapshot of the running verification so another
// process can follow it.
type ProgressFile struct {
	path string
}

func NewProgressFile(path string) *ProgressFile {
	return &ProgressFile{path: path}
}

// Write atomically replaces the snapshot.
func (f *ProgressFile) Write(ctx context.Context, p sortable.Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create progress file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close progress file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

// Read loads the last snapshot.
func (f *ProgressFile) Read() (sortable.Progress, error) {
	var p sortable.Progress
	data, err := os.ReadFile(f.path)
	if err != nil {
		return p, fmt.Errorf("failed to read progress file: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse progress file: %w", err)
	}
	return p, nil
}
