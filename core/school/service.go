package school

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/annotation"
)

var (
	// errors
	ErrGradeNotFound   = errors.New("grade not found")
	ErrGradeExists     = errors.New("this grade already exists for this year")
	ErrStudentNotFound = errors.New("student not found")
	ErrStudentExists   = errors.New("a student with this student ID already exists")
)

const defaultTopLimit = 10

type (
	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		GetGradeByID(ctx context.Context, id int64) (Grade, error)
		QueryGradesByYear(ctx context.Context, year int) ([]Grade, error)
		// CopyGradesToYear copies every (grade_number, section) of fromYear
		// into toYear, skipping triples that already exist. Returns the
		// number of grades created.
		CopyGradesToYear(ctx context.Context, fromYear, toYear int) (int, error)

		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id int64) (Student, error)
		QueryStudentsByGrade(ctx context.Context, gradeID int64) ([]Student, error)
		// TopStudents ranks students by annotation count, then total points,
		// both descending. gradeID 0 means all grades.
		TopStudents(ctx context.Context, gradeID int64, limit int) ([]TopStudent, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	grd := Grade{
		GradeNumber: ng.GradeNumber,
		Section:     ng.Section,
		Year:        ng.Year,
		CreatedAt:   time.Now().UTC(),
	}
	grd, err := svc.repo.CreateGrade(ctx, grd)
	if err == ErrGradeExists {
		return Grade{}, core.NewValidationError(err)
	}
	return grd, err
}

func (svc *Service) GetGrade(ctx context.Context, id int64) (Grade, error) {
	return svc.repo.GetGradeByID(ctx, id)
}

// ListGrades returns the grades of a year; year 0 means the current year.
func (svc *Service) ListGrades(ctx context.Context, year int) ([]Grade, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	return svc.repo.QueryGradesByYear(ctx, year)
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetGradeByID(ctx, ns.GradeID); err != nil {
		return Student{}, err
	}
	std := Student{
		StudentID: ns.StudentID,
		FullName:  ns.FullName,
		GradeID:   ns.GradeID,
		CreatedAt: time.Now().UTC(),
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if err == ErrStudentExists {
		return Student{}, core.NewValidationError(err)
	}
	return std, err
}

func (svc *Service) GetStudent(ctx context.Context, id int64) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) ListStudents(ctx context.Context, gradeID int64) ([]Student, error) {
	if _, err := svc.repo.GetGradeByID(ctx, gradeID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudentsByGrade(ctx, gradeID)
}

// ImportStudents enrolls parsed rows into one grade. Rows whose student ID
// already exists are skipped silently; malformed rows are reported in the
// per-row error list. A bad row never aborts the batch.
func (svc *Service) ImportStudents(ctx context.Context, gradeID int64, rows []ImportRow) (ImportResult, error) {
	if _, err := svc.repo.GetGradeByID(ctx, gradeID); err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for i, row := range rows {
		row.StudentID = core.CleanString(row.StudentID)
		row.FullName = core.CleanString(row.FullName)
		if row.StudentID == "" || row.FullName == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: student_id and full_name are required", i+1))
			continue
		}
		_, err := svc.repo.CreateStudent(ctx, Student{
			StudentID: row.StudentID,
			FullName:  row.FullName,
			GradeID:   gradeID,
			CreatedAt: time.Now().UTC(),
		})
		switch err {
		case nil:
			res.Imported++
		case ErrStudentExists:
			res.Skipped++
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, row.FullName, err))
		}
	}
	return res, nil
}

// TopStudents returns annotation statistics with the derived conduct score
// attached; the score is recomputed on every read, never stored.
func (svc *Service) TopStudents(ctx context.Context, gradeID int64, limit int) ([]TopStudent, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	tops, err := svc.repo.TopStudents(ctx, gradeID, limit)
	if err != nil {
		return nil, err
	}
	for i := range tops {
		tops[i].Conduct = annotation.ScoreFromDeducted(tops[i].TotalPoints)
		tops[i].Tier = annotation.Tier(tops[i].Conduct)
	}
	return tops, nil
}

// StartNewYear copies the current year's grade layout into newYear,
// ignoring duplicates. newYear 0 means next year.
func (svc *Service) StartNewYear(ctx context.Context, newYear int) (int, int, error) {
	current := time.Now().Year()
	if newYear == 0 {
		newYear = current + 1
	}
	created, err := svc.repo.CopyGradesToYear(ctx, current, newYear)
	return newYear, created, err
}
