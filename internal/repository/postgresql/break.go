package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type breakRepository struct {
	db *database.DB
}

func NewBreakRepository(db *database.DB) attendance.BreakRepository {
	return &breakRepository{db: db}
}

// ListByAttendance implements attendance.BreakRepository.
func (r *breakRepository) ListByAttendance(ctx context.Context, attendanceID string) ([]attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, attendance_id, break_type, started_at, ended_at, duration_seconds, created_at
		FROM attendance_breaks
		WHERE attendance_id = $1
		ORDER BY started_at, id
	`

	rows, err := q.Query(ctx, query, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query breaks: %w", err)
	}
	defer rows.Close()

	breaks := []attendance.Break{}
	for rows.Next() {
		var b attendance.Break
		var seconds int64
		if err := rows.Scan(&b.ID, &b.AttendanceID, &b.Type, &b.StartedAt, &b.EndedAt, &seconds, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		b.StartedAt = b.StartedAt.UTC()
		b.EndedAt = utc(b.EndedAt)
		b.CreatedAt = b.CreatedAt.UTC()
		b.Duration = time.Duration(seconds) * time.Second
		breaks = append(breaks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate breaks: %w", err)
	}

	return breaks, nil
}

// Save implements attendance.BreakRepository.
func (r *breakRepository) Save(ctx context.Context, b attendance.Break) (attendance.Break, error) {
	q := GetQuerier(ctx, r.db)

	if b.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Break{}, err
		}
		b.ID = id.String()
	}

	query := `
		INSERT INTO attendance_breaks (id, attendance_id, break_type, started_at, ended_at, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			break_type = EXCLUDED.break_type,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			duration_seconds = EXCLUDED.duration_seconds
	`

	_, err := q.Exec(ctx, query,
		b.ID, b.AttendanceID, b.Type, b.StartedAt, b.EndedAt, int64(b.Duration/time.Second), b.CreatedAt,
	)
	if err != nil {
		return attendance.Break{}, fmt.Errorf("failed to save break: %w", err)
	}

	return b, nil
}
