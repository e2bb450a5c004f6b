package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
)

type correctionRepository struct {
	s *Store
}

func NewCorrectionRepository(s *Store) correction.CorrectionRepository {
	return &correctionRepository{s: s}
}

// Create implements correction.CorrectionRepository.
func (r *correctionRepository) Create(ctx context.Context, c correction.Correction) (correction.Correction, error) {
	if c.ID == "" {
		id, err := newID()
		if err != nil {
			return correction.Correction{}, err
		}
		c.ID = id
	}

	if tx := txFrom(ctx); tx != nil {
		tx.corrections[c.ID] = c
		return c, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.corrections[c.ID] = c
	return c, nil
}

// GetByID implements correction.CorrectionRepository.
func (r *correctionRepository) GetByID(ctx context.Context, id string) (correction.Correction, error) {
	if tx := txFrom(ctx); tx != nil {
		if c, ok := tx.corrections[id]; ok {
			return c, nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.corrections[id]
	if !ok {
		return correction.Correction{}, correction.ErrCorrectionNotFound
	}
	return c, nil
}

// Resolve implements correction.CorrectionRepository.
func (r *correctionRepository) Resolve(ctx context.Context, id string, res correction.Resolution) (correction.Correction, error) {
	if tx := txFrom(ctx); tx != nil {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return correction.Correction{}, err
		}
		if err := c.Resolve(res); err != nil {
			return correction.Correction{}, err
		}
		c.UpdatedAt = res.ResolvedAt
		tx.corrections[id] = c
		tx.resolved[id] = true
		return c, nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.corrections[id]
	if !ok {
		return correction.Correction{}, correction.ErrCorrectionNotFound
	}
	if err := c.Resolve(res); err != nil {
		return correction.Correction{}, err
	}
	c.UpdatedAt = res.ResolvedAt
	r.s.corrections[id] = c
	return c, nil
}

// List implements correction.CorrectionRepository.
func (r *correctionRepository) List(ctx context.Context, filter correction.CorrectionFilter) ([]correction.Correction, int64, error) {
	r.s.mu.RLock()
	matched := make([]correction.Correction, 0)
	for _, c := range r.s.corrections {
		if filter.EmployeeID != nil && c.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.AttendanceID != nil && c.AttendanceID != *filter.AttendanceID {
			continue
		}
		if filter.Status != nil && string(c.Status) != *filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].SubmittedAt.Equal(matched[j].SubmittedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}
