package sqliterepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/annotation"
)

type annotationRepository struct {
	db core.DBExecutor
}

var _ annotation.Repository = (*annotationRepository)(nil) // interface compliance check

func NewAnnotationRepository(db core.DBExecutor) *annotationRepository {
	return &annotationRepository{db: db}
}

type annotationRow struct {
	ID          int64     `db:"id"`
	StudentID   int64     `db:"student_id"`
	TeacherID   int64     `db:"teacher_id"`
	TeacherName string    `db:"teacher_name"`
	Type        string    `db:"annotation_type"`
	Points      int       `db:"points"`
	Description string    `db:"description"`
	Date        time.Time `db:"date"`
}

func (r annotationRow) toAnnotation() annotation.Annotation {
	return annotation.Annotation{
		ID:          r.ID,
		StudentID:   r.StudentID,
		TeacherID:   r.TeacherID,
		TeacherName: r.TeacherName,
		Type:        r.Type,
		Points:      r.Points,
		Description: r.Description,
		Date:        r.Date,
	}
}

func (repo annotationRepository) selectAnnotations() sq.SelectBuilder {
	return sb.Select(
		"a.id", "a.student_id", "a.teacher_id", "a.annotation_type", "a.points", "a.description", "a.date",
		"u.full_name AS teacher_name",
	).
		From("annotations a").
		Join("users u ON a.teacher_id = u.id")
}

func (repo annotationRepository) CreateAnnotation(ctx context.Context, ann annotation.Annotation) (annotation.Annotation, error) {
	query, args, err := sb.Insert("annotations").
		Columns("student_id", "teacher_id", "annotation_type", "points", "description", "date").
		Values(ann.StudentID, ann.TeacherID, ann.Type, ann.Points, ann.Description, ann.Date).
		ToSql()
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "inserting annotation")
	}
	ann.ID, err = res.LastInsertId()
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "getting inserted annotation ID")
	}
	return ann, nil
}

func (repo annotationRepository) GetAnnotationByID(ctx context.Context, id int64) (annotation.Annotation, error) {
	query, args, err := repo.selectAnnotations().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "building query")
	}
	var row annotationRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return annotation.Annotation{}, trapNoRowsErr(err, annotation.ErrNotFound, "getting annotation")
	}
	return row.toAnnotation(), nil
}

func (repo annotationRepository) QueryAnnotationsByStudent(ctx context.Context, studentID int64) ([]annotation.Annotation, error) {
	query, args, err := repo.selectAnnotations().
		Where(sq.Eq{"a.student_id": studentID}).
		OrderBy("a.date DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []annotationRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying annotations")
	}
	anns := make([]annotation.Annotation, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, r.toAnnotation())
	}
	return anns, nil
}

func (repo annotationRepository) UpdateAnnotation(ctx context.Context, ann annotation.Annotation) (annotation.Annotation, error) {
	query, args, err := sb.Update("annotations").
		Set("annotation_type", ann.Type).
		Set("points", ann.Points).
		Set("description", ann.Description).
		Where(sq.Eq{"id": ann.ID}).
		ToSql()
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return annotation.Annotation{}, errors.Wrap(err, "updating annotation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return annotation.Annotation{}, annotation.ErrNotFound
	}
	return ann, nil
}
