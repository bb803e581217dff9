package cdn

import (
	"context"
)

// Invalidator submits one batch invalidation request for a set of paths and
// returns the provider's invalidation identifier.
type Invalidator interface {
	Invalidate(ctx context.Context, distributionID string, paths []string) (string, error)
}
