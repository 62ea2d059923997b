package dummydb

import (
	"context"
	"sort"

	"github.com/interamericana/registro/core/school"
)

type schoolRepository struct {
	grades      *gradeTable
	students    *studentTable
	annotations *annotationTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{grades: db.grade, students: db.student, annotations: db.annotation}
}

func (repo *schoolRepository) CreateGrade(_ context.Context, grd school.Grade) (school.Grade, error) {
	repo.grades.Lock()
	defer repo.grades.Unlock()

	for _, g := range repo.grades.table {
		if g.GradeNumber == grd.GradeNumber && g.Section == grd.Section && g.Year == grd.Year {
			return school.Grade{}, school.ErrGradeExists
		}
	}
	repo.grades.pk++
	grd.ID = repo.grades.pk
	repo.grades.table[grd.ID] = &grd
	return grd, nil
}

func (repo *schoolRepository) GetGradeByID(_ context.Context, id int64) (school.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	if grd, ok := repo.grades.table[id]; ok {
		return *grd, nil
	}
	return school.Grade{}, school.ErrGradeNotFound
}

func (repo *schoolRepository) QueryGradesByYear(_ context.Context, year int) ([]school.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	grades := make([]school.Grade, 0, len(repo.grades.table))
	for _, g := range repo.grades.table {
		if year == 0 || g.Year == year {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].GradeNumber != grades[j].GradeNumber {
			return grades[i].GradeNumber < grades[j].GradeNumber
		}
		return grades[i].Section < grades[j].Section
	})
	return grades, nil
}

func (repo *schoolRepository) CopyGradesToYear(ctx context.Context, fromYear, toYear int) (int, error) {
	src, err := repo.QueryGradesByYear(ctx, fromYear)
	if err != nil {
		return 0, err
	}

	repo.grades.Lock()
	defer repo.grades.Unlock()

	var created int
	for _, g := range src {
		exists := false
		for _, dst := range repo.grades.table {
			if dst.GradeNumber == g.GradeNumber && dst.Section == g.Section && dst.Year == toYear {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		repo.grades.pk++
		grd := school.Grade{ID: repo.grades.pk, GradeNumber: g.GradeNumber, Section: g.Section, Year: toYear, CreatedAt: g.CreatedAt}
		repo.grades.table[grd.ID] = &grd
		created++
	}
	return created, nil
}

func (repo *schoolRepository) CreateStudent(_ context.Context, std school.Student) (school.Student, error) {
	repo.grades.RLock()
	_, gradeOK := repo.grades.table[std.GradeID]
	repo.grades.RUnlock()
	if !gradeOK {
		return school.Student{}, school.ErrGradeNotFound
	}

	repo.students.Lock()
	defer repo.students.Unlock()

	for _, s := range repo.students.table {
		if s.StudentID == std.StudentID {
			return school.Student{}, school.ErrStudentExists
		}
	}
	repo.students.pk++
	std.ID = repo.students.pk
	repo.students.table[std.ID] = &std
	return std, nil
}

func (repo *schoolRepository) GetStudentByID(_ context.Context, id int64) (school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if std, ok := repo.students.table[id]; ok {
		return *std, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudentsByGrade(_ context.Context, gradeID int64) ([]school.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	var students []school.Student
	for _, s := range repo.students.table {
		if s.GradeID == gradeID {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].FullName < students[j].FullName })
	return students, nil
}

func (repo *schoolRepository) TopStudents(_ context.Context, gradeID int64, limit int) ([]school.TopStudent, error) {
	repo.students.RLock()
	repo.grades.RLock()
	repo.annotations.RLock()
	defer repo.students.RUnlock()
	defer repo.grades.RUnlock()
	defer repo.annotations.RUnlock()

	var top []school.TopStudent
	for _, s := range repo.students.table {
		if gradeID != 0 && s.GradeID != gradeID {
			continue
		}
		ts := school.TopStudent{Student: *s}
		if grd, ok := repo.grades.table[s.GradeID]; ok {
			ts.GradeNumber = grd.GradeNumber
			ts.Section = grd.Section
		}
		for _, ann := range repo.annotations.table {
			if ann.StudentID == s.ID {
				ts.TotalAnnotations++
				ts.TotalPoints += ann.Points
			}
		}
		top = append(top, ts)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalAnnotations != top[j].TotalAnnotations {
			return top[i].TotalAnnotations > top[j].TotalAnnotations
		}
		return top[i].TotalPoints > top[j].TotalPoints
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
