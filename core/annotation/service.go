package annotation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
)

var ErrNotFound = errors.New("annotation not found")

type (
	Repository interface {
		CreateAnnotation(ctx context.Context, ann Annotation) (Annotation, error)
		GetAnnotationByID(ctx context.Context, id int64) (Annotation, error)
		// QueryAnnotationsByStudent returns a student's annotations newest
		// first, with the authoring teacher's name joined.
		QueryAnnotationsByStudent(ctx context.Context, studentID int64) ([]Annotation, error)
		UpdateAnnotation(ctx context.Context, ann Annotation) (Annotation, error)
	}

	Service struct {
		repo        Repository
		broadcaster core.Broadcaster
	}
)

func NewService(repo Repository, broadcaster core.Broadcaster) *Service {
	return &Service{repo: repo, broadcaster: broadcaster}
}

// Create records an annotation authored by the given teacher and notifies
// connected coordinators. Broadcasting is best-effort; the annotation
// stands even if nobody is listening.
func (svc *Service) Create(ctx context.Context, teacherID int64, teacherName string, na NewAnnotation) (Annotation, error) {
	ann := Annotation{
		StudentID:   na.StudentID,
		TeacherID:   teacherID,
		Type:        na.Type,
		Points:      na.Points,
		Description: na.Description,
		Date:        time.Now().UTC(),
	}
	ann, err := svc.repo.CreateAnnotation(ctx, ann)
	if err != nil {
		return Annotation{}, err
	}
	ann.TeacherName = teacherName

	svc.broadcaster.Publish(core.Event{
		Kind:  core.EventNewAnnotation,
		Rooms: []string{core.RoomCoordinators},
		Payload: map[string]interface{}{
			"annotation_id": ann.ID,
			"student_id":    ann.StudentID,
			"teacher":       teacherName,
		},
	})
	return ann, nil
}

func (svc *Service) ListByStudent(ctx context.Context, studentID int64) ([]Annotation, error) {
	return svc.repo.QueryAnnotationsByStudent(ctx, studentID)
}

// Update lets an admin correct type, points or description.
func (svc *Service) Update(ctx context.Context, id int64, ua UpdateAnnotation) (Annotation, error) {
	ann, err := svc.repo.GetAnnotationByID(ctx, id)
	if err != nil {
		return Annotation{}, err
	}
	ann.Type = ua.Type
	ann.Points = ua.Points
	ann.Description = ua.Description
	return svc.repo.UpdateAnnotation(ctx, ann)
}

// Conduct derives a student's current conduct state from the full
// annotation history.
func (svc *Service) Conduct(ctx context.Context, studentID int64) (ConductSummary, error) {
	anns, err := svc.repo.QueryAnnotationsByStudent(ctx, studentID)
	if err != nil {
		return ConductSummary{}, err
	}
	return Summarize(anns), nil
}
