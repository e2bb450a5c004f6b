package correction

import (
	"context"
)

type CorrectionRepository interface {
	Create(ctx context.Context, c Correction) (Correction, error)
	GetByID(ctx context.Context, id string) (Correction, error)

	// Resolve writes the resolution only if the request is still PENDING.
	// Returns ErrNotPending when another caller resolved it first.
	Resolve(ctx context.Context, id string, r Resolution) (Correction, error)

	List(ctx context.Context, filter CorrectionFilter) ([]Correction, int64, error)
}
