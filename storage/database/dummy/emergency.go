package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/interamericana/registro/core/emergency"
)

type emergencyRepository struct {
	requests *emergencyTable
	users    *userTable
	grades   *gradeTable
}

var _ emergency.Repository = (*emergencyRepository)(nil) // interface compliance check

func NewEmergencyRepository(db *DB) emergency.Repository {
	return &emergencyRepository{requests: db.emergency, users: db.user, grades: db.grade}
}

func (repo *emergencyRepository) join(req emergency.Request) emergency.Request {
	repo.users.RLock()
	if usr, ok := repo.users.table[req.TeacherID]; ok {
		req.TeacherName = usr.FullName
	}
	repo.users.RUnlock()

	repo.grades.RLock()
	if grd, ok := repo.grades.table[req.GradeID]; ok {
		req.GradeNumber = grd.GradeNumber
		req.Section = grd.Section
	}
	repo.grades.RUnlock()
	return req
}

func (repo *emergencyRepository) CreateRequest(_ context.Context, req emergency.Request) (emergency.Request, error) {
	repo.requests.Lock()
	repo.requests.pk++
	req.ID = repo.requests.pk
	stored := req
	repo.requests.table[req.ID] = &stored
	repo.requests.Unlock()

	return repo.join(req), nil
}

func (repo *emergencyRepository) GetRequestByID(_ context.Context, id int64) (emergency.Request, error) {
	repo.requests.RLock()
	req, ok := repo.requests.table[id]
	repo.requests.RUnlock()

	if !ok {
		return emergency.Request{}, emergency.ErrNotFound
	}
	return repo.join(*req), nil
}

func (repo *emergencyRepository) QueryRequests(_ context.Context, status string) ([]emergency.Request, error) {
	repo.requests.RLock()
	var reqs []emergency.Request
	for _, req := range repo.requests.table {
		if status == "" || req.Status == status {
			reqs = append(reqs, *req)
		}
	}
	repo.requests.RUnlock()

	for i := range reqs {
		reqs[i] = repo.join(reqs[i])
	}
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID > reqs[j].ID
	})
	return reqs, nil
}

func (repo *emergencyRepository) UpdateRequestStatus(_ context.Context, id int64, status string, resolvedAt *time.Time, notes string) (emergency.Request, error) {
	repo.requests.Lock()
	req, ok := repo.requests.table[id]
	if !ok {
		repo.requests.Unlock()
		return emergency.Request{}, emergency.ErrNotFound
	}
	req.Status = status
	if resolvedAt != nil {
		t := *resolvedAt
		req.ResolvedAt = &t
	}
	if notes != "" {
		req.ResolutionNotes = notes
	}
	res := *req
	repo.requests.Unlock()

	return repo.join(res), nil
}
