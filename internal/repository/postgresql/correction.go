package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const correctionColumns = `
	id, attendance_id, employee_id, work_date, requested_by, category,
	original_clock_in, original_clock_out, requested_clock_in, requested_clock_out,
	reason, status, reviewed_by, reviewer_comments, submitted_at, resolved_at,
	created_at, updated_at`

type correctionRepository struct {
	db *database.DB
}

func NewCorrectionRepository(db *database.DB) correction.CorrectionRepository {
	return &correctionRepository{db: db}
}

func scanCorrection(row pgx.Row) (correction.Correction, error) {
	var c correction.Correction
	err := row.Scan(
		&c.ID, &c.AttendanceID, &c.EmployeeID, &c.WorkDate, &c.RequestedBy, &c.Category,
		&c.OriginalClockIn, &c.OriginalClockOut, &c.RequestedClockIn, &c.RequestedClockOut,
		&c.Reason, &c.Status, &c.ReviewedBy, &c.ReviewerComments, &c.SubmittedAt, &c.ResolvedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return correction.Correction{}, err
	}

	c.WorkDate = attendance.NormalizeDate(c.WorkDate)
	c.OriginalClockIn = utc(c.OriginalClockIn)
	c.OriginalClockOut = utc(c.OriginalClockOut)
	c.RequestedClockIn = utc(c.RequestedClockIn)
	c.RequestedClockOut = utc(c.RequestedClockOut)
	c.SubmittedAt = c.SubmittedAt.UTC()
	c.ResolvedAt = utc(c.ResolvedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// Create implements correction.CorrectionRepository.
func (r *correctionRepository) Create(ctx context.Context, c correction.Correction) (correction.Correction, error) {
	q := GetQuerier(ctx, r.db)

	if c.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return correction.Correction{}, err
		}
		c.ID = id.String()
	}

	query := `
		INSERT INTO attendance_corrections (
			id, attendance_id, employee_id, work_date, requested_by, category,
			original_clock_in, original_clock_out, requested_clock_in, requested_clock_out,
			reason, status, submitted_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		) RETURNING ` + correctionColumns

	created, err := scanCorrection(q.QueryRow(ctx, query,
		c.ID, c.AttendanceID, c.EmployeeID, c.WorkDate, c.RequestedBy, c.Category,
		c.OriginalClockIn, c.OriginalClockOut, c.RequestedClockIn, c.RequestedClockOut,
		c.Reason, c.Status, c.SubmittedAt, c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return correction.Correction{}, fmt.Errorf("failed to create correction: %w", err)
	}

	return created, nil
}

// GetByID implements correction.CorrectionRepository.
func (r *correctionRepository) GetByID(ctx context.Context, id string) (correction.Correction, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return correction.Correction{}, correction.ErrCorrectionNotFound
	}

	c, err := scanCorrection(q.QueryRow(ctx, "SELECT "+correctionColumns+" FROM attendance_corrections WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return correction.Correction{}, correction.ErrCorrectionNotFound
		}
		return correction.Correction{}, fmt.Errorf("failed to get correction by id: %w", err)
	}

	return c, nil
}

// Resolve implements correction.CorrectionRepository. The status guard in the
// WHERE clause makes the transition happen at most once.
func (r *correctionRepository) Resolve(ctx context.Context, id string, res correction.Resolution) (correction.Correction, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_corrections SET
			status = $2,
			reviewed_by = $3,
			reviewer_comments = $4,
			resolved_at = $5,
			updated_at = $5
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + correctionColumns

	c, err := scanCorrection(q.QueryRow(ctx, query, id, res.Status, res.ReviewedBy, res.Comments, res.ResolvedAt))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return correction.Correction{}, fmt.Errorf("failed to resolve correction: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return correction.Correction{}, err
	}
	return correction.Correction{}, correction.ErrNotPending
}

// List implements correction.CorrectionRepository.
func (r *correctionRepository) List(ctx context.Context, filter correction.CorrectionFilter) ([]correction.Correction, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "TRUE"
	args := []any{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.AttendanceID != nil && *filter.AttendanceID != "" {
		baseWhere += fmt.Sprintf(" AND attendance_id::text = $%d", argIdx)
		args = append(args, *filter.AttendanceID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_corrections WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count corrections: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := max(filter.Page, 1)

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_corrections
		WHERE %s
		ORDER BY submitted_at DESC, id
		LIMIT $%d OFFSET $%d
	`, correctionColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []correction.Correction
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate corrections: %w", err)
	}

	return corrections, total, nil
}
