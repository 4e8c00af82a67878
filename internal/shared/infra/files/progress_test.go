package files

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

func TestProgressFile_WriteRead(t *testing.T) {
	f := NewProgressFile(filepath.Join(t.TempDir(), "progress.json"))

	p := sortable.Progress{
		RunStartedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 14, 9, 1, 0, 0, time.UTC),
		Total:        100,
		Processed:    40,
		Succeeded:    38,
		Failed:       2,
		Batches:      2,
		Workers:      6,
		LastError:    0.05,
	}
	require.NoError(t, f.Write(context.Background(), p))

	p.Processed = 60
	require.NoError(t, f.Write(context.Background(), p))

	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestProgressFile_ReadMissing(t *testing.T) {
	_, err := NewProgressFile(filepath.Join(t.TempDir(), "none.json")).Read()
	assert.Error(t, err)
}
