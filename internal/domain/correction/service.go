package correction

import (
	"context"
)

// CorrectionService defines the retroactive edit workflow for attendance records
type CorrectionService interface {
	// Submit snapshots the record and files a PENDING request. It does not
	// take the work day lock.
	Submit(ctx context.Context, req SubmitCorrectionRequest) (CorrectionResponse, error)

	// Approve resolves the request and overwrites the record's clock instants
	// under the work day lock
	Approve(ctx context.Context, req ReviewCorrectionRequest) (CorrectionResponse, error)

	Reject(ctx context.Context, req ReviewCorrectionRequest) (CorrectionResponse, error)

	GetCorrection(ctx context.Context, id string) (CorrectionResponse, error)
	ListCorrections(ctx context.Context, filter CorrectionFilter) (ListCorrectionResponse, error)
}
