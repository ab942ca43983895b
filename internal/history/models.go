package history

import "time"

// Operation actions.
const (
	ActionRegister = "register"
	ActionRemove   = "remove"
)

// Operation statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// OperationRecord is one lifecycle operation in the history log.
type OperationRecord struct {
	ID              int64
	Domain          string
	Action          string
	Status          string
	StartedAt       time.Time
	DurationSeconds *float64
	ErrorMessage    *string
}
