package annotation

import (
	"time"

	"github.com/interamericana/registro/core"
)

// Annotation types, with their conventional point deductions.
const (
	TypeLeve     = "leve"
	TypeGrave    = "grave"
	TypeMuyGrave = "muy_grave"
)

var DefaultPoints = map[string]int{
	TypeLeve:     5,
	TypeGrave:    10,
	TypeMuyGrave: 20,
}

type Annotation struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student_id"`
	TeacherID   int64     `json:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty"` // joined on read
	Type        string    `json:"annotation_type"`
	Points      int       `json:"points"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"` // UTC
}

// NewAnnotation contains information needed to record a new Annotation.
// Points may be omitted, in which case the type's conventional value is
// used; when supplied it must be one of the conventional values.
type NewAnnotation struct {
	StudentID   int64  `json:"student_id" validate:"required"`
	Type        string `json:"annotation_type" validate:"required,oneof=leve grave muy_grave"`
	Points      int    `json:"points" validate:"omitempty,oneof=5 10 20"`
	Description string `json:"description"`
}

func (na *NewAnnotation) Validate() error {
	na.Type = core.CleanString(na.Type, true /* lower */)
	na.Description = core.CleanString(na.Description)
	if err := core.Validate.Struct(na); err != nil {
		return err
	}
	if na.Points == 0 {
		na.Points = DefaultPoints[na.Type]
	}
	return nil
}

// UpdateAnnotation defines what an admin may modify on an existing
// Annotation; the authoring teacher cannot edit after creation.
type UpdateAnnotation struct {
	Type        string `json:"annotation_type" validate:"required,oneof=leve grave muy_grave"`
	Points      int    `json:"points" validate:"omitempty,oneof=5 10 20"`
	Description string `json:"description"`
}

func (ua *UpdateAnnotation) Validate() error {
	ua.Type = core.CleanString(ua.Type, true /* lower */)
	ua.Description = core.CleanString(ua.Description)
	if err := core.Validate.Struct(ua); err != nil {
		return err
	}
	if ua.Points == 0 {
		ua.Points = DefaultPoints[ua.Type]
	}
	return nil
}
