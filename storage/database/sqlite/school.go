package sqliterepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/school"
)

type schoolRepository struct {
	db core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DBExecutor) *schoolRepository {
	return &schoolRepository{db: db}
}

type gradeRow struct {
	ID          int64     `db:"id"`
	GradeNumber int       `db:"grade_number"`
	Section     string    `db:"section"`
	Year        int       `db:"year"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r gradeRow) toGrade() school.Grade {
	return school.Grade{
		ID:          r.ID,
		GradeNumber: r.GradeNumber,
		Section:     r.Section,
		Year:        r.Year,
		CreatedAt:   r.CreatedAt,
	}
}

type studentRow struct {
	ID        int64     `db:"id"`
	StudentID string    `db:"student_id"`
	FullName  string    `db:"full_name"`
	GradeID   int64     `db:"grade_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r studentRow) toStudent() school.Student {
	return school.Student{
		ID:        r.ID,
		StudentID: r.StudentID,
		FullName:  r.FullName,
		GradeID:   r.GradeID,
		CreatedAt: r.CreatedAt,
	}
}

func (repo schoolRepository) CreateGrade(ctx context.Context, grd school.Grade) (school.Grade, error) {
	query, args, err := sb.Insert("grades").
		Columns("grade_number", "section", "year", "created_at").
		Values(grd.GradeNumber, grd.Section, grd.Year, grd.CreatedAt).
		ToSql()
	if err != nil {
		return school.Grade{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueErr(err, "grades.grade_number") {
			return school.Grade{}, school.ErrGradeExists
		}
		return school.Grade{}, errors.Wrap(err, "inserting grade")
	}
	grd.ID, err = res.LastInsertId()
	if err != nil {
		return school.Grade{}, errors.Wrap(err, "getting inserted grade ID")
	}
	return grd, nil
}

func (repo schoolRepository) GetGradeByID(ctx context.Context, id int64) (school.Grade, error) {
	query, args, err := sb.Select("id", "grade_number", "section", "year", "created_at").
		From("grades").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return school.Grade{}, errors.Wrap(err, "building query")
	}
	var row gradeRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return school.Grade{}, trapNoRowsErr(err, school.ErrGradeNotFound, "getting grade")
	}
	return row.toGrade(), nil
}

func (repo schoolRepository) QueryGradesByYear(ctx context.Context, year int) ([]school.Grade, error) {
	query, args, err := sb.Select("id", "grade_number", "section", "year", "created_at").
		From("grades").
		Where(sq.Eq{"year": year}).
		OrderBy("grade_number", "section").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []gradeRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]school.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toGrade())
	}
	return grades, nil
}

func (repo schoolRepository) CopyGradesToYear(ctx context.Context, fromYear, toYear int) (int, error) {
	// INSERT OR IGNORE keeps triples that already exist in the target year.
	res, err := repo.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO grades (grade_number, section, year, created_at)
		 SELECT grade_number, section, ?, ? FROM grades WHERE year = ?`,
		toYear, time.Now().UTC(), fromYear,
	)
	if err != nil {
		return 0, errors.Wrap(err, "copying grades")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting copied grades")
	}
	return int(n), nil
}

func (repo schoolRepository) CreateStudent(ctx context.Context, std school.Student) (school.Student, error) {
	query, args, err := sb.Insert("students").
		Columns("student_id", "full_name", "grade_id", "created_at").
		Values(std.StudentID, std.FullName, std.GradeID, std.CreatedAt).
		ToSql()
	if err != nil {
		return school.Student{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isUniqueErr(err, "students.student_id"):
			return school.Student{}, school.ErrStudentExists
		case isFKErr(err):
			return school.Student{}, school.ErrGradeNotFound
		}
		return school.Student{}, errors.Wrap(err, "inserting student")
	}
	std.ID, err = res.LastInsertId()
	if err != nil {
		return school.Student{}, errors.Wrap(err, "getting inserted student ID")
	}
	return std, nil
}

func (repo schoolRepository) GetStudentByID(ctx context.Context, id int64) (school.Student, error) {
	query, args, err := sb.Select("id", "student_id", "full_name", "grade_id", "created_at").
		From("students").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return school.Student{}, errors.Wrap(err, "building query")
	}
	var row studentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return school.Student{}, trapNoRowsErr(err, school.ErrStudentNotFound, "getting student")
	}
	return row.toStudent(), nil
}

func (repo schoolRepository) QueryStudentsByGrade(ctx context.Context, gradeID int64) ([]school.Student, error) {
	query, args, err := sb.Select("id", "student_id", "full_name", "grade_id", "created_at").
		From("students").
		Where(sq.Eq{"grade_id": gradeID}).
		OrderBy("full_name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []studentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

type topStudentRow struct {
	studentRow
	GradeNumber      int    `db:"grade_number"`
	Section          string `db:"section"`
	TotalAnnotations int    `db:"total_annotations"`
	TotalPoints      int    `db:"total_points"`
}

func (repo schoolRepository) TopStudents(ctx context.Context, gradeID int64, limit int) ([]school.TopStudent, error) {
	b := sb.Select(
		"s.id", "s.student_id", "s.full_name", "s.grade_id", "s.created_at",
		"g.grade_number", "g.section",
		"COUNT(a.id) AS total_annotations",
		"COALESCE(SUM(a.points), 0) AS total_points",
	).
		From("students s").
		Join("grades g ON s.grade_id = g.id").
		LeftJoin("annotations a ON s.id = a.student_id").
		GroupBy("s.id").
		OrderBy("total_annotations DESC", "total_points DESC").
		Limit(uint64(limit))
	if gradeID != 0 {
		b = b.Where(sq.Eq{"s.grade_id": gradeID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []topStudentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying top students")
	}
	tops := make([]school.TopStudent, 0, len(rows))
	for _, r := range rows {
		tops = append(tops, school.TopStudent{
			Student:          r.toStudent(),
			GradeNumber:      r.GradeNumber,
			Section:          r.Section,
			TotalAnnotations: r.TotalAnnotations,
			TotalPoints:      r.TotalPoints,
		})
	}
	return tops, nil
}
