package publish

import "context"

// Artifact is a rendered report file to be published.
type Artifact struct {
	Name        string
	Body        []byte
	ContentType string
}

// Publisher publishes report artifacts to remote storage.
type Publisher interface {
	// Preflight verifies that the remote storage is reachable and writable.
	Preflight(ctx context.Context) error

	// Publish uploads artifacts under a sub-prefix named after runName.
	Publish(ctx context.Context, runName string, artifacts []Artifact) error
}
