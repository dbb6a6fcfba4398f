package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const periodColumns = `id, department_id, period_number, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, duration_minutes, created_at, updated_at`

// PeriodRepository persists department periods.
type PeriodRepository struct {
	db *sqlx.DB
}

func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns the department's periods ordered by period number.
func (r *PeriodRepository) List(ctx context.Context, departmentID string) ([]models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE department_id = $1 ORDER BY period_number ASC", periodColumns)
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, departmentID); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

func (r *PeriodRepository) FindByID(ctx context.Context, departmentID, id string) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE id = $1 AND department_id = $2", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id, departmentID); err != nil {
		return nil, err
	}
	return &period, nil
}

// ExistsByNumber reports whether another period already uses the number.
func (r *PeriodRepository) ExistsByNumber(ctx context.Context, departmentID string, number int, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM periods WHERE department_id = $1 AND period_number = $2`
	args := []interface{}{departmentID, number}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check period number: %w", err)
	}
	return count > 0, nil
}

func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	period.CreatedAt = now
	period.UpdatedAt = now

	const query = `INSERT INTO periods (id, department_id, period_number, start_time, end_time, duration_minutes, created_at, updated_at) VALUES (:id, :department_id, :period_number, :start_time, :end_time, :duration_minutes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE periods SET period_number = :period_number, start_time = :start_time, end_time = :end_time, duration_minutes = :duration_minutes, updated_at = :updated_at WHERE id = :id AND department_id = :department_id`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("update period: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *PeriodRepository) Delete(ctx context.Context, departmentID, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM periods WHERE id = $1 AND department_id = $2`, id, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete period: %w", err)
	}
	return res.RowsAffected()
}
