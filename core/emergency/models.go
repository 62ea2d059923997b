package emergency

import (
	"time"

	"github.com/interamericana/registro/core"
)

// Request statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// DefaultMessage is used when a teacher raises a request without a message.
const DefaultMessage = "Solicitud de asistencia urgente"

// transitions is the legal status partial order; resolved is terminal.
var transitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {},
}

func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// CanTransition reports whether from -> to is a defined transition.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Request struct {
	ID              int64      `json:"id"`
	TeacherID       int64      `json:"teacher_id"`
	TeacherName     string     `json:"teacher_name,omitempty"` // joined on read
	GradeID         int64      `json:"grade_id"`
	GradeNumber     int        `json:"grade_number,omitempty"` // joined on read
	Section         string     `json:"section,omitempty"`      // joined on read
	Message         string     `json:"message"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// NewRequest contains information needed to raise an assistance request.
type NewRequest struct {
	GradeID int64  `json:"grade_id" validate:"required"`
	Message string `json:"message"`
}

func (nr *NewRequest) Validate() error {
	nr.Message = core.CleanString(nr.Message)
	if nr.Message == "" {
		nr.Message = DefaultMessage
	}
	return core.Validate.Struct(nr)
}

// StatusUpdate defines a requested status transition. Notes are only
// persisted when the target status is resolved.
type StatusUpdate struct {
	Status          string `json:"status" validate:"required"`
	ResolutionNotes string `json:"resolution_notes"`
}

func (su *StatusUpdate) Validate() error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.ResolutionNotes = core.CleanString(su.ResolutionNotes)
	if err := core.Validate.Struct(su); err != nil {
		return err
	}
	if !ValidStatus(su.Status) {
		return core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}
	return nil
}
