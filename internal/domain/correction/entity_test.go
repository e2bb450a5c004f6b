package correction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrection_ResolveOnce(t *testing.T) {
	c := Correction{ID: "c-1", Status: StatusPending}
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	comments := "looks right"

	require.NoError(t, c.Resolve(Resolution{Status: StatusApproved, ReviewedBy: "mgr-1", Comments: &comments, ResolvedAt: now}))
	assert.Equal(t, StatusApproved, c.Status)
	assert.Equal(t, "mgr-1", *c.ReviewedBy)
	assert.Equal(t, now, *c.ResolvedAt)

	err := c.Resolve(Resolution{Status: StatusRejected, ReviewedBy: "mgr-2", ResolvedAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, StatusApproved, c.Status)
	assert.Equal(t, "mgr-1", *c.ReviewedBy)
}

func TestSubmitCorrectionRequest_Validate(t *testing.T) {
	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	out := in.Add(-time.Hour)

	tests := []struct {
		name    string
		req     SubmitCorrectionRequest
		wantErr bool
	}{
		{"valid", SubmitCorrectionRequest{AttendanceID: "a", RequestedBy: "u", RequestedClockIn: &in}, false},
		{"missing attendance", SubmitCorrectionRequest{RequestedBy: "u", RequestedClockIn: &in}, true},
		{"bad category", SubmitCorrectionRequest{AttendanceID: "a", RequestedBy: "u", Category: "LUNCH"}, true},
		{"inverted window", SubmitCorrectionRequest{AttendanceID: "a", RequestedBy: "u", RequestedClockIn: &in, RequestedClockOut: &out}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, string(CategoryOther), tt.req.Category)
			}
		})
	}
}
