package correction

import "errors"

var (
	ErrCorrectionNotFound = errors.New("correction request not found")
	ErrNotPending         = errors.New("correction request already resolved")
	ErrReasonRequired     = errors.New("correction reason is required")
	ErrNothingRequested   = errors.New("correction must request a clock-in or clock-out time")
	ErrAttendanceMismatch = errors.New("correction does not belong to this attendance record")
)
