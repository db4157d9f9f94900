// Package storage defines the interfaces for archiving export artifacts.
// This abstraction keeps the runner independent of a specific destination
// (Google Cloud Storage, the local filesystem, or nothing at all).
package storage

import (
	"context"
)

// Provider defines the common interface for an export archive destination.
type Provider interface {
	// Save writes data under a specified object path/key.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider is a storage provider that performs no operations. It is the
// default: exports are served from memory and archiving is opt-in.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
