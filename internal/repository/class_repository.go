package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ClassRepository persists department classes.
type ClassRepository struct {
	db *sqlx.DB
}

func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes ordered by name.
func (r *ClassRepository) List(ctx context.Context, departmentID string) ([]models.Class, error) {
	const query = `SELECT id, department_id, name, section, created_at, updated_at FROM classes WHERE department_id = $1 ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, departmentID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

func (r *ClassRepository) FindByID(ctx context.Context, departmentID, id string) (*models.Class, error) {
	const query = `SELECT id, department_id, name, section, created_at, updated_at FROM classes WHERE id = $1 AND department_id = $2`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, departmentID); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListTeachers returns the teachers linked to each of the given classes.
func (r *ClassRepository) ListTeachers(ctx context.Context, classIDs []string) ([]models.ClassTeacher, error) {
	if len(classIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ct.class_id, u.id, u.full_name, u.email FROM class_teachers ct JOIN users u ON u.id = ct.teacher_id WHERE ct.class_id = ANY($1::uuid[]) ORDER BY u.full_name ASC`
	var links []models.ClassTeacher
	if err := r.db.SelectContext(ctx, &links, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list class teachers: %w", err)
	}
	return links, nil
}

func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, department_id, name, section, created_at, updated_at) VALUES (:id, :department_id, :name, :section, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, section = :section, updated_at = :updated_at WHERE id = :id AND department_id = :department_id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes the class together with its teacher links.
func (r *ClassRepository) Delete(ctx context.Context, departmentID, id string) (affected int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_teachers WHERE class_id IN (SELECT id FROM classes WHERE id = $1 AND department_id = $2)`, id, departmentID); err != nil {
		return 0, fmt.Errorf("delete class teachers: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND department_id = $2`, id, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete class: %w", err)
	}
	if affected, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("delete class rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete class: %w", err)
	}
	return affected, nil
}
