// Package memory is a process-local store for attendance data. Writes made
// inside WithinTransaction are staged and applied atomically on commit.
package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.RWMutex
	attendances map[string]attendance.Attendance
	byDay       map[string]string
	breaks      map[string]attendance.Break
	corrections map[string]correction.Correction
}

func NewStore() *Store {
	return &Store{
		attendances: make(map[string]attendance.Attendance),
		byDay:       make(map[string]string),
		breaks:      make(map[string]attendance.Break),
		corrections: make(map[string]correction.Correction),
	}
}

type txKey struct{}

type txState struct {
	attendances map[string]attendance.Attendance
	created     map[string]bool
	breaks      map[string]attendance.Break
	corrections map[string]correction.Correction
	// corrections that must still be PENDING in the store at commit
	resolved map[string]bool
}

func newTxState() *txState {
	return &txState{
		attendances: make(map[string]attendance.Attendance),
		created:     make(map[string]bool),
		breaks:      make(map[string]attendance.Break),
		corrections: make(map[string]correction.Correction),
		resolved:    make(map[string]bool),
	}
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithinTransaction implements database.Transactor. Nested calls join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := newTxState()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.created {
		if _, exists := s.byDay[tx.attendances[id].Key().String()]; exists {
			return attendance.ErrAttendanceExists
		}
	}
	for id := range tx.resolved {
		if current, ok := s.corrections[id]; !ok || !current.IsPending() {
			return correction.ErrNotPending
		}
	}

	for _, a := range tx.attendances {
		s.putAttendance(a)
	}
	for _, b := range tx.breaks {
		s.breaks[b.ID] = b
	}
	for _, c := range tx.corrections {
		s.corrections[c.ID] = c
	}
	return nil
}

// putAttendance requires s.mu held for writing.
func (s *Store) putAttendance(a attendance.Attendance) {
	a = a.Clone()
	a.Breaks = nil
	s.attendances[a.ID] = a
	s.byDay[a.Key().String()] = a.ID
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
