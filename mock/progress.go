package mock

import (
	"context"

	"github.com/fwojciec/wikifetch"
)

var (
	_ wikifetch.ProgressIndex    = (*ProgressIndex)(nil)
	_ wikifetch.CheckpointWriter = (*CheckpointWriter)(nil)
	_ wikifetch.WorkItemSource   = (*WorkItemSource)(nil)
)

// ProgressIndex is a mock implementation of wikifetch.ProgressIndex.
type ProgressIndex struct {
	LoadFn    func(ctx context.Context) (wikifetch.KeySet, error)
	PersistFn func(ctx context.Context, keys wikifetch.KeySet) error
}

func (p *ProgressIndex) Load(ctx context.Context) (wikifetch.KeySet, error) {
	return p.LoadFn(ctx)
}

func (p *ProgressIndex) Persist(ctx context.Context, keys wikifetch.KeySet) error {
	return p.PersistFn(ctx, keys)
}

// CheckpointWriter is a mock implementation of wikifetch.CheckpointWriter.
type CheckpointWriter struct {
	WriteCheckpointFn func(ctx context.Context, cp *wikifetch.Checkpoint) error
}

func (w *CheckpointWriter) WriteCheckpoint(ctx context.Context, cp *wikifetch.Checkpoint) error {
	return w.WriteCheckpointFn(ctx, cp)
}

// WorkItemSource is a mock implementation of wikifetch.WorkItemSource.
type WorkItemSource struct {
	ReadWorkItemsFn func(ctx context.Context) ([]*wikifetch.WorkItem, error)
}

func (s *WorkItemSource) ReadWorkItems(ctx context.Context) ([]*wikifetch.WorkItem, error) {
	return s.ReadWorkItemsFn(ctx)
}
