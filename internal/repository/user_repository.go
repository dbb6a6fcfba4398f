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

const userColumns = `id, department_id, full_name, email, bio, role, created_at, updated_at`

// UserRepository reads users and manages the department's faculty.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads any user regardless of department.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDepartment loads a department by id.
func (r *UserRepository) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, `SELECT id, name, description FROM departments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &dept, nil
}

// ListFaculty returns the department's faculty ordered by full name.
func (r *UserRepository) ListFaculty(ctx context.Context, departmentID string) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE department_id = $1 AND role = 'faculty' ORDER BY full_name ASC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, departmentID); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return users, nil
}

func (r *UserRepository) FindFaculty(ctx context.Context, departmentID, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND department_id = $2 AND role = 'faculty'", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id, departmentID); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSubjects returns the subjects each given faculty member may teach.
func (r *UserRepository) ListSubjects(ctx context.Context, facultyIDs []string) ([]models.FacultySubject, error) {
	if len(facultyIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT fs.faculty_id, s.id, s.code, s.name FROM faculty_subjects fs JOIN subjects s ON s.id = fs.subject_id WHERE fs.faculty_id = ANY($1::uuid[]) ORDER BY s.code ASC`
	var links []models.FacultySubject
	if err := r.db.SelectContext(ctx, &links, query, pq.Array(facultyIDs)); err != nil {
		return nil, fmt.Errorf("list faculty subjects: %w", err)
	}
	return links, nil
}

// ExistsByEmail checks whether another user already uses the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1)`
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) CreateFaculty(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Role = models.RoleFaculty
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, department_id, full_name, email, bio, role, created_at, updated_at) VALUES (:id, :department_id, :full_name, :email, :bio, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create faculty: %w", mapUniqueViolation(err))
	}
	return nil
}

func (r *UserRepository) UpdateFaculty(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET full_name = :full_name, email = :email, bio = :bio, updated_at = :updated_at WHERE id = :id AND department_id = :department_id AND role = 'faculty'`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update faculty: %w", mapUniqueViolation(err))
	}
	return nil
}

// DeleteFaculty removes the faculty member and their subject and class links in one transaction.
// Schedules keep their rows; the foreign key clears faculty_id.
func (r *UserRepository) DeleteFaculty(ctx context.Context, departmentID, id string) (affected int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete faculty: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	owned := `SELECT id FROM users WHERE id = $1 AND department_id = $2 AND role = 'faculty'`
	if _, err = tx.ExecContext(ctx, `DELETE FROM faculty_subjects WHERE faculty_id IN (`+owned+`)`, id, departmentID); err != nil {
		return 0, fmt.Errorf("delete faculty subjects: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM class_teachers WHERE teacher_id IN (`+owned+`)`, id, departmentID); err != nil {
		return 0, fmt.Errorf("delete class teachers: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND department_id = $2 AND role = 'faculty'`, id, departmentID)
	if err != nil {
		return 0, fmt.Errorf("delete faculty: %w", err)
	}
	if affected, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("delete faculty rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete faculty: %w", err)
	}
	return affected, nil
}
