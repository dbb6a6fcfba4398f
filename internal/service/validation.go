package service

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// NewValidator returns a validator with the timetable specific tags registered:
// "clock" accepts HH:MM or HH:MM:SS and "weekday" accepts a weekday name in any case.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeDay(fl.Field().String())
		return ok
	})
	return v
}

func defaultValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	return v
}

// validID reports whether id is a canonical uuid. Every primary key is a UUID column, so any
// other id cannot name a row.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
