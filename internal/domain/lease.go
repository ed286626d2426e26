package domain

import "context"

// Lease is a held per-source lock.
type Lease interface {
	Release(ctx context.Context) error
}
