package sqliterepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/emergency"
)

type emergencyRepository struct {
	db core.DBExecutor
}

var _ emergency.Repository = (*emergencyRepository)(nil) // interface compliance check

func NewEmergencyRepository(db core.DBExecutor) *emergencyRepository {
	return &emergencyRepository{db: db}
}

type requestRow struct {
	ID              int64          `db:"id"`
	TeacherID       int64          `db:"teacher_id"`
	TeacherName     string         `db:"teacher_name"`
	GradeID         int64          `db:"grade_id"`
	GradeNumber     int            `db:"grade_number"`
	Section         string         `db:"section"`
	Message         string         `db:"message"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	ResolvedAt      sql.NullTime   `db:"resolved_at"`
	ResolutionNotes sql.NullString `db:"resolution_notes"`
}

func (r requestRow) toRequest() emergency.Request {
	req := emergency.Request{
		ID:              r.ID,
		TeacherID:       r.TeacherID,
		TeacherName:     r.TeacherName,
		GradeID:         r.GradeID,
		GradeNumber:     r.GradeNumber,
		Section:         r.Section,
		Message:         r.Message,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		ResolutionNotes: r.ResolutionNotes.String,
	}
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		req.ResolvedAt = &t
	}
	return req
}

func (repo emergencyRepository) selectRequests() sq.SelectBuilder {
	return sb.Select(
		"er.id", "er.teacher_id", "er.grade_id", "er.message", "er.status",
		"er.created_at", "er.resolved_at", "er.resolution_notes",
		"u.full_name AS teacher_name", "g.grade_number", "g.section",
	).
		From("emergency_requests er").
		Join("users u ON er.teacher_id = u.id").
		Join("grades g ON er.grade_id = g.id")
}

func (repo emergencyRepository) CreateRequest(ctx context.Context, req emergency.Request) (emergency.Request, error) {
	query, args, err := sb.Insert("emergency_requests").
		Columns("teacher_id", "grade_id", "message", "status", "created_at").
		Values(req.TeacherID, req.GradeID, req.Message, req.Status, req.CreatedAt).
		ToSql()
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "inserting emergency request")
	}
	req.ID, err = res.LastInsertId()
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "getting inserted request ID")
	}
	return req, nil
}

func (repo emergencyRepository) GetRequestByID(ctx context.Context, id int64) (emergency.Request, error) {
	query, args, err := repo.selectRequests().Where(sq.Eq{"er.id": id}).ToSql()
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "building query")
	}
	var row requestRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return emergency.Request{}, trapNoRowsErr(err, emergency.ErrNotFound, "getting emergency request")
	}
	return row.toRequest(), nil
}

func (repo emergencyRepository) QueryRequests(ctx context.Context, status string) ([]emergency.Request, error) {
	b := repo.selectRequests().OrderBy("er.created_at DESC")
	if status != "" {
		b = b.Where(sq.Eq{"er.status": status})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []requestRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying emergency requests")
	}
	reqs := make([]emergency.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, r.toRequest())
	}
	return reqs, nil
}

func (repo emergencyRepository) UpdateRequestStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time, notes string) (emergency.Request, error) {
	b := sb.Update("emergency_requests").Set("status", status).Where(sq.Eq{"id": id})
	if resolvedAt != nil {
		b = b.Set("resolved_at", *resolvedAt)
	}
	if notes != "" {
		b = b.Set("resolution_notes", notes)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return emergency.Request{}, errors.Wrap(err, "updating emergency request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return emergency.Request{}, emergency.ErrNotFound
	}
	return repo.GetRequestByID(ctx, id)
}
