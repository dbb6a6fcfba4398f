package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

type junction struct {
	table  string
	owner  string
	member string
	// memberScope counts member ids that exist in a department; $1 is the department, $2 the ids.
	memberScope string
}

var junctions = map[models.AssignmentRelation]junction{
	models.RelationClassTeachers: {
		table:       "class_teachers",
		owner:       "class_id",
		member:      "teacher_id",
		memberScope: `SELECT COUNT(*) FROM users WHERE department_id = $1 AND role = 'faculty' AND id = ANY($2::uuid[])`,
	},
	models.RelationFacultySubjects: {
		table:       "faculty_subjects",
		owner:       "faculty_id",
		member:      "subject_id",
		memberScope: `SELECT COUNT(*) FROM subjects WHERE department_id = $1 AND id = ANY($2::uuid[])`,
	},
}

func lookupJunction(relation models.AssignmentRelation) (junction, error) {
	j, ok := junctions[relation]
	if !ok {
		return junction{}, fmt.Errorf("unknown assignment relation %q", relation)
	}
	return j, nil
}

// AssignmentRepository maintains the many-to-many junction tables.
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ReplaceMembers makes the owner's member set equal to memberIDs in one transaction:
// rows outside the set are deleted and missing rows inserted.
func (r *AssignmentRepository) ReplaceMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string, memberIDs []string) (err error) {
	j, err := lookupJunction(relation)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", j.table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = replaceMembersTx(ctx, tx, j, ownerID, memberIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", j.table, err)
	}
	return nil
}

func replaceMembersTx(ctx context.Context, tx sqlx.ExecerContext, j junction, ownerID string, memberIDs []string) error {
	members := pq.Array(memberIDs)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND NOT (%s = ANY($2::uuid[]))`, j.table, j.owner, j.member)
	if _, err := tx.ExecContext(ctx, deleteQuery, ownerID, members); err != nil {
		return fmt.Errorf("prune %s: %w", j.table, err)
	}

	if len(memberIDs) == 0 {
		return nil
	}

	insertQuery := fmt.Sprintf(`INSERT INTO %s (%s, %s) SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING`, j.table, j.owner, j.member)
	if _, err := tx.ExecContext(ctx, insertQuery, ownerID, members); err != nil {
		return fmt.Errorf("insert %s: %w", j.table, err)
	}
	return nil
}

// ListMembers returns the member ids currently linked to the owner.
func (r *AssignmentRepository) ListMembers(ctx context.Context, relation models.AssignmentRelation, ownerID string) ([]string, error) {
	j, err := lookupJunction(relation)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`, j.member, j.table, j.owner, j.member)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, ownerID); err != nil {
		return nil, fmt.Errorf("list %s: %w", j.table, err)
	}
	return ids, nil
}

// CountMembersInDepartment counts how many of the ids are valid members for the department.
func (r *AssignmentRepository) CountMembersInDepartment(ctx context.Context, relation models.AssignmentRelation, departmentID string, memberIDs []string) (int, error) {
	j, err := lookupJunction(relation)
	if err != nil {
		return 0, err
	}
	if len(memberIDs) == 0 {
		return 0, nil
	}

	var count int
	if err := r.db.GetContext(ctx, &count, j.memberScope, departmentID, pq.Array(memberIDs)); err != nil {
		return 0, fmt.Errorf("count %s members: %w", j.table, err)
	}
	return count, nil
}
