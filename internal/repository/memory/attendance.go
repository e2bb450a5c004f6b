package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type attendanceRepository struct {
	s *Store
}

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	if a.ID == "" {
		id, err := newID()
		if err != nil {
			return attendance.Attendance{}, err
		}
		a.ID = id
	}
	a.Date = attendance.NormalizeDate(a.Date)

	existing, err := r.GetByEmployeeAndDate(ctx, a.EmployeeID, a.Date)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if existing != nil {
		return attendance.Attendance{}, attendance.ErrAttendanceExists
	}

	if tx := txFrom(ctx); tx != nil {
		tx.attendances[a.ID] = a.Clone()
		tx.created[a.ID] = true
		return a, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.byDay[a.Key().String()]; exists {
		return attendance.Attendance{}, attendance.ErrAttendanceExists
	}
	r.s.putAttendance(a)
	return a, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, a attendance.Attendance) error {
	if _, err := r.GetByID(ctx, a.ID); err != nil {
		return err
	}

	if tx := txFrom(ctx); tx != nil {
		tx.attendances[a.ID] = a.Clone()
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.putAttendance(a)
	return nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	if tx := txFrom(ctx); tx != nil {
		if a, ok := tx.attendances[id]; ok {
			return a.Clone(), nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.attendances[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return a.Clone(), nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	key := attendance.Key{EmployeeID: employeeID, Date: attendance.NormalizeDate(date)}.String()

	if tx := txFrom(ctx); tx != nil {
		for _, a := range tx.attendances {
			if a.Key().String() == key {
				c := a.Clone()
				return &c, nil
			}
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byDay[key]
	if !ok {
		return nil, nil
	}
	c := r.s.attendances[id].Clone()
	return &c, nil
}

// GetOpenSession implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetOpenSession(ctx context.Context, employeeID string) (*attendance.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var open *attendance.Attendance
	for _, a := range r.s.attendances {
		if a.EmployeeID != employeeID || a.ClockIn == nil || a.ClockOut != nil {
			continue
		}
		if open == nil || a.ClockIn.After(*open.ClockIn) {
			c := a.Clone()
			open = &c
		}
	}
	return open, nil
}

// LockWorkDay implements attendance.AttendanceRepository. In-process callers
// are already serialized by the ledger, so only the transaction is checked.
func (r *attendanceRepository) LockWorkDay(ctx context.Context, key attendance.Key) error {
	if txFrom(ctx) == nil {
		return errNoTransaction
	}
	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	var start, end time.Time
	if filter.StartDate != nil {
		start, _ = validator.IsValidDate(*filter.StartDate)
	}
	if filter.EndDate != nil {
		end, _ = validator.IsValidDate(*filter.EndDate)
	}

	r.s.mu.RLock()
	matched := make([]attendance.Attendance, 0)
	for _, a := range r.s.attendances {
		if filter.EmployeeID != nil && a.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && string(a.Status) != *filter.Status {
			continue
		}
		if !start.IsZero() && a.Date.Before(start) {
			continue
		}
		if !end.IsZero() && a.Date.After(end) {
			continue
		}
		matched = append(matched, a.Clone())
	}
	r.s.mu.RUnlock()

	desc := strings.ToLower(filter.SortOrder) != "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		less, equal := compareAttendance(matched[i], matched[j], filter.SortBy)
		if equal {
			return matched[i].ID < matched[j].ID
		}
		if desc {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

func compareAttendance(a, b attendance.Attendance, sortBy string) (less, equal bool) {
	switch sortBy {
	case "clock_in_time":
		return compareTimePtr(a.ClockIn, b.ClockIn)
	case "clock_out_time":
		return compareTimePtr(a.ClockOut, b.ClockOut)
	case "status":
		return a.Status < b.Status, a.Status == b.Status
	default:
		return a.Date.Before(b.Date), a.Date.Equal(b.Date)
	}
}

// compareTimePtr orders nil before any instant.
func compareTimePtr(a, b *time.Time) (less, equal bool) {
	switch {
	case a == nil && b == nil:
		return false, true
	case a == nil:
		return true, false
	case b == nil:
		return false, false
	}
	return a.Before(*b), a.Equal(*b)
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	from := (page - 1) * limit
	if from >= len(items) {
		return []T{}
	}
	to := min(from+limit, len(items))
	return items[from:to]
}
