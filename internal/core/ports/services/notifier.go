package services

import "context"

// Notifier opens an external communication link with a free-text message.
// Delivery is fire-and-forget: implementations report errors for logging
// only, and a failure must never block or roll back a ledger mutation.
type Notifier interface {
	Notify(ctx context.Context, destination, message string) error
}
