package memory

import (
	"context"
	"sync"
)

// Deleter records deletions in memory. Used in tests; FailAll makes every
// delete return FailErr to exercise best-effort cleanup paths.
type Deleter struct {
	mu      sync.Mutex
	Deleted []string
	FailAll bool
	FailErr error
}

func NewDeleter() *Deleter {
	return &Deleter{}
}

func (d *Deleter) DeleteByURL(ctx context.Context, mediaURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailAll {
		return d.FailErr
	}

	d.Deleted = append(d.Deleted, mediaURL)
	return nil
}

func (d *Deleter) DeletedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Deleted)
}
