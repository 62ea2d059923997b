package emergency

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("emergency request not found")
	ErrTeacherOnly       = errors.New("only teachers can raise emergency requests")
	errInvalidStatus     = errors.New("invalid status")
	errIllegalTransition = errors.New("illegal status transition")
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		// GetRequestByID returns the request with teacher name and grade
		// descriptor joined.
		GetRequestByID(ctx context.Context, id int64) (Request, error)
		// QueryRequests returns requests newest first; empty status means all.
		QueryRequests(ctx context.Context, status string) ([]Request, error)
		// UpdateRequestStatus persists a transition. resolvedAt and notes are
		// only written when non-zero; notes once set are never cleared.
		UpdateRequestStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time, notes string) (Request, error)
	}

	// GradeGetter resolves the grade a request points at so the broadcast
	// payload can carry the full grade descriptor.
	GradeGetter interface {
		GetGradeByID(ctx context.Context, id int64) (school.Grade, error)
	}

	Service struct {
		repo        Repository
		grades      GradeGetter
		broadcaster core.Broadcaster
	}
)

func NewService(repo Repository, grades GradeGetter, broadcaster core.Broadcaster) *Service {
	return &Service{repo: repo, grades: grades, broadcaster: broadcaster}
}

// Create raises a new assistance request. Only teachers may raise one; the
// referenced grade must exist. The initial status is always pending.
// Connected coordinators and admins are notified with the grade descriptor
// attached so they need no follow-up fetch; delivery is best-effort.
func (svc *Service) Create(ctx context.Context, requester user.User, nr NewRequest) (Request, error) {
	if !requester.IsTeacher() {
		return Request{}, ErrTeacherOnly
	}
	grd, err := svc.grades.GetGradeByID(ctx, nr.GradeID)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		TeacherID: requester.ID,
		GradeID:   grd.ID,
		Message:   nr.Message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	req, err = svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, err
	}
	req.TeacherName = requester.FullName
	req.GradeNumber = grd.GradeNumber
	req.Section = grd.Section

	svc.broadcaster.Publish(core.Event{
		Kind:  core.EventEmergencyRequest,
		Rooms: []string{core.RoomCoordinators, core.RoomAdmins},
		All:   true, // fallback so no connected session misses an emergency
		Payload: map[string]interface{}{
			"request_id":   req.ID,
			"teacher":      req.TeacherName,
			"grade_id":     req.GradeID,
			"grade_number": req.GradeNumber,
			"section":      req.Section,
			"message":      req.Message,
			"created_at":   req.CreatedAt,
		},
	})
	return req, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

// List returns requests filtered by status; "all" or empty returns everything.
func (svc *Service) List(ctx context.Context, status string) ([]Request, error) {
	status = core.CleanString(status, true /* lower */)
	if status == "all" {
		status = ""
	}
	if status != "" && !ValidStatus(status) {
		return nil, core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}
	return svc.repo.QueryRequests(ctx, status)
}

// UpdateStatus applies a transition if it is legal; an illegal or unknown
// target leaves the record unchanged. Resolving stamps the resolution time
// (server clock) and stores the optional notes. Every successful transition
// is broadcast to all connected sessions.
func (svc *Service) UpdateStatus(ctx context.Context, id int64, su StatusUpdate) (Request, error) {
	req, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !CanTransition(req.Status, su.Status) {
		return Request{}, core.NewValidationError(
			errIllegalTransition,
			core.FieldError{Field: "status", Error: req.Status + " -> " + su.Status + " is not allowed"},
		)
	}

	var resolvedAt *time.Time
	notes := ""
	if su.Status == StatusResolved {
		now := time.Now().UTC()
		resolvedAt = &now
		notes = su.ResolutionNotes
	}
	req, err = svc.repo.UpdateRequestStatus(ctx, id, su.Status, resolvedAt, notes)
	if err != nil {
		return Request{}, err
	}

	svc.broadcaster.Publish(core.Event{
		Kind: core.EventEmergencyStatusUpdate,
		All:  true,
		Payload: map[string]interface{}{
			"request_id":   req.ID,
			"status":       req.Status,
			"teacher_name": req.TeacherName,
		},
	})
	return req, nil
}
