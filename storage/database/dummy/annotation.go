package dummydb

import (
	"context"
	"sort"

	"github.com/interamericana/registro/core/annotation"
)

type annotationRepository struct {
	annotations *annotationTable
	users       *userTable
}

var _ annotation.Repository = (*annotationRepository)(nil) // interface compliance check

func NewAnnotationRepository(db *DB) annotation.Repository {
	return &annotationRepository{annotations: db.annotation, users: db.user}
}

func (repo *annotationRepository) teacherName(id int64) string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[id]; ok {
		return usr.FullName
	}
	return ""
}

func (repo *annotationRepository) CreateAnnotation(_ context.Context, ann annotation.Annotation) (annotation.Annotation, error) {
	repo.annotations.Lock()
	repo.annotations.pk++
	ann.ID = repo.annotations.pk
	stored := ann
	repo.annotations.table[ann.ID] = &stored
	repo.annotations.Unlock()

	ann.TeacherName = repo.teacherName(ann.TeacherID)
	return ann, nil
}

func (repo *annotationRepository) GetAnnotationByID(_ context.Context, id int64) (annotation.Annotation, error) {
	repo.annotations.RLock()
	ann, ok := repo.annotations.table[id]
	repo.annotations.RUnlock()

	if !ok {
		return annotation.Annotation{}, annotation.ErrNotFound
	}
	res := *ann
	res.TeacherName = repo.teacherName(res.TeacherID)
	return res, nil
}

func (repo *annotationRepository) QueryAnnotationsByStudent(_ context.Context, studentID int64) ([]annotation.Annotation, error) {
	repo.annotations.RLock()
	var anns []annotation.Annotation
	for _, ann := range repo.annotations.table {
		if ann.StudentID == studentID {
			anns = append(anns, *ann)
		}
	}
	repo.annotations.RUnlock()

	for i := range anns {
		anns[i].TeacherName = repo.teacherName(anns[i].TeacherID)
	}
	sort.Slice(anns, func(i, j int) bool {
		if !anns[i].Date.Equal(anns[j].Date) {
			return anns[i].Date.After(anns[j].Date)
		}
		return anns[i].ID > anns[j].ID
	})
	return anns, nil
}

func (repo *annotationRepository) UpdateAnnotation(_ context.Context, ann annotation.Annotation) (annotation.Annotation, error) {
	repo.annotations.Lock()
	defer repo.annotations.Unlock()

	orig, ok := repo.annotations.table[ann.ID]
	if !ok {
		return annotation.Annotation{}, annotation.ErrNotFound
	}
	orig.Type = ann.Type
	orig.Points = ann.Points
	orig.Description = ann.Description

	res := *orig
	res.TeacherName = repo.teacherName(res.TeacherID)
	return res, nil
}
