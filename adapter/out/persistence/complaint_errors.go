package persistence

import (
	"errors"
	"strings"

	"complaint_server/core/port/out"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Common persistence errors
var (
	ErrNotFound          = out.ErrNotFound
	ErrConstraint        = out.ErrConstraint
	ErrInvalidTransition = out.ErrInvalidTransition
)

// integrity_constraint_violation class
const sqlStateIntegrityClass = "23"

// mapError tags driver-level constraint violations (pgx or lib/pq) with ErrConstraint.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, sqlStateIntegrityClass) {
		return &constraintError{constraint: pgErr.ConstraintName, err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code.Class()) == sqlStateIntegrityClass {
		return &constraintError{constraint: pqErr.Constraint, err: err}
	}

	return err
}

type constraintError struct {
	constraint string
	err        error
}

func (e *constraintError) Error() string {
	if e.constraint != "" {
		return "constraint " + e.constraint + ": " + e.err.Error()
	}
	return e.err.Error()
}

func (e *constraintError) Unwrap() []error {
	return []error{ErrConstraint, e.err}
}
