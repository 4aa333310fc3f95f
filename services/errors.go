package services

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by the service layer. Handlers translate these to
// HTTP statuses; anything else is treated as an internal error.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
