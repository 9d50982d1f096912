package dispatch

import "context"

// Collaborator is the interface for external action sinks
type Collaborator interface {
	// Start prepares the collaborator for deliveries
	Start(ctx context.Context) error

	// Stop releases the collaborator's resources
	Stop() error

	// Deliver sends one event; the error is the delivery outcome
	Deliver(ctx context.Context, event Event) error

	// Name returns the name of the collaborator
	Name() string

	// IsEnabled returns whether the collaborator is enabled
	IsEnabled() bool
}
