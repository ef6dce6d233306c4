package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/wikifetch"
)

// CheckpointName is the file name of the run checkpoint inside the result
// directory.
const CheckpointName = ".checkpoint.json"

// Ensure CheckpointFile implements wikifetch.CheckpointWriter at compile time.
var _ wikifetch.CheckpointWriter = (*CheckpointFile)(nil)

// CheckpointFile stores the latest checkpoint as a JSON file, overwriting
// the previous one on every write.
type CheckpointFile struct {
	path string
}

// NewCheckpointFile creates a CheckpointFile inside dir.
func NewCheckpointFile(dir string) *CheckpointFile {
	return &CheckpointFile{path: filepath.Join(dir, CheckpointName)}
}

// Path returns the checkpoint file path.
func (c *CheckpointFile) Path() string {
	return c.path
}

// WriteCheckpoint replaces the checkpoint file with cp.
func (c *CheckpointFile) WriteCheckpoint(ctx context.Context, cp *wikifetch.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return writeFileAtomic(c.path, data, os.Rename)
}

// ReadCheckpoint reads the latest checkpoint.
// Returns ENOTFOUND if no checkpoint has been written.
func (c *CheckpointFile) ReadCheckpoint(ctx context.Context) (*wikifetch.Checkpoint, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, wikifetch.Errorf(wikifetch.ENOTFOUND, "no checkpoint in %s", filepath.Dir(c.path))
	} else if err != nil {
		return nil, err
	}

	var cp wikifetch.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, wikifetch.Errorf(wikifetch.EINVALID, "checkpoint is corrupted: %v", err)
	}
	return &cp, nil
}
