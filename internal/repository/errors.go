package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// pq error code raised by unique constraints.
const uniqueViolation = "23505"

// mapUniqueViolation turns a unique constraint failure into models.ErrDuplicate.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w (%s)", models.ErrDuplicate, pqErr.Constraint)
	}
	return err
}
