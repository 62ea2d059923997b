package school

import (
	"time"

	"github.com/interamericana/registro/core"
)

// Grade represents one class-section-year; the (number, section, year)
// triple is unique and a grade is immutable once created.
type Grade struct {
	ID          int64     `json:"id"`
	GradeNumber int       `json:"grade_number"`
	Section     string    `json:"section"`
	Year        int       `json:"year"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Student struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"`
	FullName  string    `json:"full_name"`
	GradeID   int64     `json:"grade_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewGrade contains information needed to create a new Grade.
type NewGrade struct {
	GradeNumber int    `json:"grade_number" validate:"required,min=1,max=12"`
	Section     string `json:"section" validate:"required"`
	Year        int    `json:"year"` // defaults to the current year
}

func (ng *NewGrade) Validate() error {
	ng.Section = core.CleanString(ng.Section, true /* lower */)
	if ng.Year == 0 {
		ng.Year = time.Now().Year()
	}
	return core.Validate.Struct(ng)
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	StudentID string `json:"student_id" validate:"required"`
	FullName  string `json:"full_name" validate:"required"`
	GradeID   int64  `json:"grade_id" validate:"required"`
}

func (ns *NewStudent) Validate() error {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.FullName = core.CleanString(ns.FullName)
	return core.Validate.Struct(ns)
}

// ImportRow is one student row produced by a bulk import parser. Parsing
// the uploaded file is the caller's concern; the service only consumes rows.
type ImportRow struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"` // duplicates, silently ignored
	Errors   []string `json:"errors,omitempty"`
}

// TopStudent is one row of the annotation statistics: students ranked by
// accumulated annotations. Conduct and Tier are derived on read.
type TopStudent struct {
	Student
	GradeNumber      int    `json:"grade_number"`
	Section          string `json:"section"`
	TotalAnnotations int    `json:"total_annotations"`
	TotalPoints      int    `json:"total_points"`
	Conduct          int    `json:"conduct"`
	Tier             string `json:"tier"`
}
