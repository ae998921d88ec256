package media_client

import "context"

// Deleter removes externally stored media blobs. Deletion is advisory:
// callers treat failures as log-and-skip, never as a consistency boundary
// for post data.
type Deleter interface {
	DeleteByURL(ctx context.Context, mediaURL string) error
}
