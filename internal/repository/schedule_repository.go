package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

const scheduleColumns = `id, department_id, day, period_id, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, faculty_id, class_id, room_id, subject_id, created_by, created_at, updated_at`

// pq error code raised by the schedules exclusion constraints.
const exclusionViolation = "23P01"

// ConflictDetector inspects the bookings already stored for a day and reports collisions.
type ConflictDetector = func(existing []models.Schedule) []models.ScheduleConflict

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE department_id = $1"
	args := []interface{}{filter.DepartmentID}

	if filter.Day != "" {
		base += fmt.Sprintf(" AND day = $%d", len(args)+1)
		args = append(args, filter.Day)
	}
	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.FacultyID != "" {
		base += fmt.Sprintf(" AND faculty_id = $%d", len(args)+1)
		args = append(args, filter.FacultyID)
	}
	if filter.RoomID != "" {
		base += fmt.Sprintf(" AND room_id = $%d", len(args)+1)
		args = append(args, filter.RoomID)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY day ASC, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id within a department.
func (r *ScheduleRepository) FindByID(ctx context.Context, departmentID, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1 AND department_id = $2", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id, departmentID); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListByDay returns every booking of a department on a day.
func (r *ScheduleRepository) ListByDay(ctx context.Context, departmentID, day string) ([]models.Schedule, error) {
	return r.listByDay(ctx, r.db, departmentID, day)
}

func (r *ScheduleRepository) listByDay(ctx context.Context, q sqlx.QueryerContext, departmentID, day string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE department_id = $1 AND day = $2 ORDER BY start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := sqlx.SelectContext(ctx, q, &schedules, query, departmentID, day); err != nil {
		return nil, fmt.Errorf("list schedules by day: %w", err)
	}
	return schedules, nil
}

// ListDetailed returns bookings joined with display names, narrowed by the timetable filter.
func (r *ScheduleRepository) ListDetailed(ctx context.Context, departmentID string, filter models.TimetableFilter) ([]models.ScheduleDetail, error) {
	conditions := []string{"s.department_id = $1"}
	args := []interface{}{departmentID}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conditions = append(conditions, fmt.Sprintf("s.faculty_id = $%d", len(args)))
	}
	if filter.RoomID != "" {
		args = append(args, filter.RoomID)
		conditions = append(conditions, fmt.Sprintf("s.room_id = $%d", len(args)))
	}

	query := `SELECT s.id, s.department_id, s.day, s.period_id,
		to_char(s.start_time, 'HH24:MI') AS start_time, to_char(s.end_time, 'HH24:MI') AS end_time,
		s.faculty_id, s.class_id, s.room_id, s.subject_id, s.created_by, s.created_at, s.updated_at,
		p.period_number, sub.code AS subject_code, sub.name AS subject_name,
		u.full_name AS faculty_name, c.name AS class_name
	FROM schedules s
	LEFT JOIN periods p ON p.id = s.period_id
	LEFT JOIN subjects sub ON sub.id = s.subject_id
	LEFT JOIN users u ON u.id = s.faculty_id
	LEFT JOIN classes c ON c.id = s.class_id
	WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY s.day ASC, s.start_time ASC`

	var details []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule details: %w", err)
	}
	return details, nil
}

// CreateGuarded inserts the schedule only when detect reports no conflicts against the
// bookings of the same department and day. The check and the insert share one transaction
// serialised by an advisory lock on (department, day).
func (r *ScheduleRepository) CreateGuarded(ctx context.Context, schedule *models.Schedule, detect ConflictDetector) ([]models.ScheduleConflict, error) {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (id, department_id, day, period_id, start_time, end_time, faculty_id, class_id, room_id, subject_id, created_by, created_at, updated_at) VALUES (:id, :department_id, :day, :period_id, :start_time, :end_time, :faculty_id, :class_id, :room_id, :subject_id, :created_by, :created_at, :updated_at)`

	var conflicts []models.ScheduleConflict
	err := r.withDayLock(ctx, schedule.DepartmentID, schedule.Day, func(tx *sqlx.Tx) error {
		existing, err := r.existingForDay(ctx, tx, schedule.DepartmentID, schedule.Day)
		if err != nil {
			return err
		}
		if conflicts = detect(existing); len(conflicts) > 0 {
			return nil
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, query, schedule); err != nil {
			return fmt.Errorf("create schedule: %w", mapScheduleWriteError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// UpdateGuarded rewrites the schedule under the same guard as CreateGuarded and reloads
// the persisted row. A missing row yields sql.ErrNoRows.
func (r *ScheduleRepository) UpdateGuarded(ctx context.Context, schedule *models.Schedule, detect ConflictDetector) ([]models.ScheduleConflict, error) {
	schedule.UpdatedAt = time.Now().UTC()

	const query = `UPDATE schedules SET day = :day, period_id = :period_id, start_time = :start_time, end_time = :end_time, faculty_id = :faculty_id, class_id = :class_id, room_id = :room_id, subject_id = :subject_id, updated_at = :updated_at WHERE id = :id AND department_id = :department_id`

	var conflicts []models.ScheduleConflict
	err := r.withDayLock(ctx, schedule.DepartmentID, schedule.Day, func(tx *sqlx.Tx) error {
		existing, err := r.existingForDay(ctx, tx, schedule.DepartmentID, schedule.Day)
		if err != nil {
			return err
		}
		if conflicts = detect(existing); len(conflicts) > 0 {
			return nil
		}

		res, err := sqlx.NamedExecContext(ctx, tx, query, schedule)
		if err != nil {
			return fmt.Errorf("update schedule: %w", mapScheduleWriteError(err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update schedule rows affected: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}

		reload := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
		if err := sqlx.GetContext(ctx, tx, schedule, reload, schedule.ID); err != nil {
			return fmt.Errorf("reload schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// Delete removes a schedule and reports how many rows were affected.
func (r *ScheduleRepository) Delete(ctx context.Context, departmentID, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1 AND department_id = $2`, id, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete schedule rows affected: %w", err)
	}
	return affected, nil
}

// Schedules without a day never collide, so they skip the lock and the lookup.
func (r *ScheduleRepository) existingForDay(ctx context.Context, tx *sqlx.Tx, departmentID string, day *string) ([]models.Schedule, error) {
	if day == nil {
		return nil, nil
	}
	return r.listByDay(ctx, tx, departmentID, *day)
}

func (r *ScheduleRepository) withDayLock(ctx context.Context, departmentID string, day *string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if day != nil {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dayLockKey(departmentID, *day)); err != nil {
			return fmt.Errorf("lock schedule day: %w", err)
		}
	}

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", mapScheduleWriteError(err))
	}
	return nil
}

func dayLockKey(departmentID, day string) string {
	return "schedules:" + departmentID + ":" + day
}

type referenceCheck struct {
	field string
	query string
	value func(models.ScheduleReferences) *string
}

var scheduleReferenceChecks = []referenceCheck{
	{"period_id", `SELECT EXISTS (SELECT 1 FROM periods WHERE id = $1 AND department_id = $2)`, func(r models.ScheduleReferences) *string { return r.PeriodID }},
	{"faculty_id", `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND department_id = $2)`, func(r models.ScheduleReferences) *string { return r.FacultyID }},
	{"class_id", `SELECT EXISTS (SELECT 1 FROM classes WHERE id = $1 AND department_id = $2)`, func(r models.ScheduleReferences) *string { return r.ClassID }},
	{"subject_id", `SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1 AND department_id = $2)`, func(r models.ScheduleReferences) *string { return r.SubjectID }},
}

// MissingReferences returns the names of the set references that do not resolve to a row
// of the department, in period, faculty, class, subject order.
func (r *ScheduleRepository) MissingReferences(ctx context.Context, departmentID string, refs models.ScheduleReferences) ([]string, error) {
	var missing []string
	for _, check := range scheduleReferenceChecks {
		id := check.value(refs)
		if id == nil {
			continue
		}
		var exists bool
		if err := r.db.GetContext(ctx, &exists, check.query, *id, departmentID); err != nil {
			return nil, fmt.Errorf("check schedule %s: %w", check.field, err)
		}
		if !exists {
			missing = append(missing, check.field)
		}
	}
	return missing, nil
}

func mapScheduleWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
		return fmt.Errorf("%w (%s)", models.ErrScheduleOverlap, pqErr.Constraint)
	}
	return err
}
