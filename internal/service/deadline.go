package service

import (
	"time"

	"github.com/edura/edura-go-api/internal/models"
)

// CanSubmit reports whether a write against the assignment is still
// time-permitted. Work handed in exactly at the deadline is accepted.
// Pure; every mutating submission path must consult this before touching
// state and surface a rejection as ErrDeadlinePassed, never a silent no-op.
func CanSubmit(assignment models.Assignment, now time.Time) bool {
	return !assignment.IsPastDue(now)
}
