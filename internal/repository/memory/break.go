package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
)

var errNoTransaction = errors.New("memory: work day lock requires a transaction")

type breakRepository struct {
	s *Store
}

func NewBreakRepository(s *Store) attendance.BreakRepository {
	return &breakRepository{s: s}
}

// ListByAttendance implements attendance.BreakRepository.
func (r *breakRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]attendance.Break, error) {
	byID := make(map[string]attendance.Break)

	r.s.mu.RLock()
	for _, b := range r.s.breaks {
		if b.AttendanceID == attendanceID {
			byID[b.ID] = b
		}
	}
	r.s.mu.RUnlock()

	if tx := txFrom(ctx); tx != nil {
		for _, b := range tx.breaks {
			if b.AttendanceID == attendanceID {
				byID[b.ID] = b
			}
		}
	}

	breaks := make([]attendance.Break, 0, len(byID))
	for _, b := range byID {
		breaks = append(breaks, cloneBreak(b))
	}
	sort.Slice(breaks, func(i, j int) bool {
		return breaks[i].StartedAt.Before(breaks[j].StartedAt)
	})
	return breaks, nil
}

// Save implements attendance.BreakRepository.
func (r *breakRepository) Save(ctx context.Context, b attendance.Break) (attendance.Break, error) {
	if b.ID == "" {
		id, err := newID()
		if err != nil {
			return attendance.Break{}, err
		}
		b.ID = id
	}
	b = cloneBreak(b)

	if tx := txFrom(ctx); tx != nil {
		tx.breaks[b.ID] = b
		return b, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.breaks[b.ID] = b
	return b, nil
}

func cloneBreak(b attendance.Break) attendance.Break {
	if b.EndedAt != nil {
		end := *b.EndedAt
		b.EndedAt = &end
	}
	return b
}
