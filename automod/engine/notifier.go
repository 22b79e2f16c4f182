package engine

import (
	"context"
)

// Interface for a type that can handle sending notifications
type Notifier interface {
	SendDecision(ctx context.Context, dec *Decision) error
}
