package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SubjectRepository persists department subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects ordered by code.
func (r *SubjectRepository) List(ctx context.Context, departmentID string) ([]models.Subject, error) {
	const query = `SELECT id, department_id, code, name, units, created_at, updated_at FROM subjects WHERE department_id = $1 ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, departmentID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

func (r *SubjectRepository) FindByID(ctx context.Context, departmentID, id string) (*models.Subject, error) {
	const query = `SELECT id, department_id, code, name, units, created_at, updated_at FROM subjects WHERE id = $1 AND department_id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, departmentID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByCode checks whether the code is taken within the department.
func (r *SubjectRepository) ExistsByCode(ctx context.Context, departmentID, code, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM subjects WHERE department_id = $1 AND LOWER(code) = LOWER($2)`
	args := []interface{}{departmentID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check subject code: %w", err)
	}
	return count > 0, nil
}

func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, department_id, code, name, units, created_at, updated_at) VALUES (:id, :department_id, :code, :name, :units, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET code = :code, name = :name, units = :units, updated_at = :updated_at WHERE id = :id AND department_id = :department_id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *SubjectRepository) Delete(ctx context.Context, departmentID, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND department_id = $2`, id, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete subject: %w", err)
	}
	return res.RowsAffected()
}
