// Package notify publishes run-completion notifications so downstream
// consumers can react when a collection run finishes.
package notify

import (
	"context"
)

// Completion describes a finished run.
type Completion struct {
	RunID   string `json:"run_id"`
	Records int    `json:"records"`
	Result  string `json:"result"`
}

// Provider defines the interface for publishing run-completion messages.
type Provider interface {
	// Publish sends a completion notification. Implementations should not
	// block run teardown on delivery.
	Publish(ctx context.Context, c Completion) error
	// Close releases any resources held by the provider.
	Close() error
}

// NoOpProvider is a notification provider that does nothing. It is the
// default when no message broker is configured.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ Completion) error {
	return nil
}

// Close for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Close() error {
	return nil
}
