package school

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interamericana/registro/core/annotation"
)

type fakeRepository struct {
	grades   map[int64]*Grade
	students map[int64]*Student
	tops     []TopStudent // canned TopStudents result
	gradePK  int64
	stdPK    int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		grades:   make(map[int64]*Grade),
		students: make(map[int64]*Student),
	}
}

func (repo *fakeRepository) CreateGrade(_ context.Context, grd Grade) (Grade, error) {
	for _, g := range repo.grades {
		if g.GradeNumber == grd.GradeNumber && g.Section == grd.Section && g.Year == grd.Year {
			return Grade{}, ErrGradeExists
		}
	}
	repo.gradePK++
	grd.ID = repo.gradePK
	repo.grades[grd.ID] = &grd
	return grd, nil
}

func (repo *fakeRepository) GetGradeByID(_ context.Context, id int64) (Grade, error) {
	if grd, ok := repo.grades[id]; ok {
		return *grd, nil
	}
	return Grade{}, ErrGradeNotFound
}

func (repo *fakeRepository) QueryGradesByYear(_ context.Context, year int) ([]Grade, error) {
	var grades []Grade
	for _, grd := range repo.grades {
		if grd.Year == year {
			grades = append(grades, *grd)
		}
	}
	return grades, nil
}

func (repo *fakeRepository) CopyGradesToYear(ctx context.Context, fromYear, toYear int) (int, error) {
	created := 0
	for _, grd := range repo.grades {
		if grd.Year != fromYear {
			continue
		}
		copied := Grade{GradeNumber: grd.GradeNumber, Section: grd.Section, Year: toYear, CreatedAt: time.Now().UTC()}
		if _, err := repo.CreateGrade(ctx, copied); err == ErrGradeExists {
			continue
		} else if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (repo *fakeRepository) CreateStudent(_ context.Context, std Student) (Student, error) {
	if _, ok := repo.grades[std.GradeID]; !ok {
		return Student{}, ErrGradeNotFound
	}
	for _, s := range repo.students {
		if s.StudentID == std.StudentID {
			return Student{}, ErrStudentExists
		}
	}
	repo.stdPK++
	std.ID = repo.stdPK
	repo.students[std.ID] = &std
	return std, nil
}

func (repo *fakeRepository) GetStudentByID(_ context.Context, id int64) (Student, error) {
	if std, ok := repo.students[id]; ok {
		return *std, nil
	}
	return Student{}, ErrStudentNotFound
}

func (repo *fakeRepository) QueryStudentsByGrade(_ context.Context, gradeID int64) ([]Student, error) {
	var students []Student
	for _, std := range repo.students {
		if std.GradeID == gradeID {
			students = append(students, *std)
		}
	}
	return students, nil
}

func (repo *fakeRepository) TopStudents(_ context.Context, _ int64, limit int) ([]TopStudent, error) {
	if limit > len(repo.tops) {
		limit = len(repo.tops)
	}
	return repo.tops[:limit], nil
}

func seedGrade(t *testing.T, repo *fakeRepository, number int, section string, year int) Grade {
	t.Helper()
	grd, err := repo.CreateGrade(context.Background(), Grade{GradeNumber: number, Section: section, Year: year})
	require.NoError(t, err)
	return grd
}

func TestService_ImportStudents(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := NewService(repo)
	grd := seedGrade(t, repo, 5, "a", time.Now().Year())

	_, err := svc.CreateStudent(ctx, NewStudent{StudentID: "EST-001", FullName: "Maria Lopez", GradeID: grd.ID})
	require.NoError(t, err)

	t.Run("unknown grade aborts", func(t *testing.T) {
		_, err := svc.ImportStudents(ctx, 99, []ImportRow{{StudentID: "EST-002", FullName: "Juan Perez"}})
		assert.Equal(t, ErrGradeNotFound, err)
	})

	t.Run("mixed batch", func(t *testing.T) {
		rows := []ImportRow{
			{StudentID: "EST-002", FullName: "Juan Perez"},
			{StudentID: "EST-001", FullName: "Maria Lopez"}, // duplicate
			{StudentID: "  EST-003  ", FullName: "  Ana Ruiz  "},
			{StudentID: "", FullName: "Sin Codigo"}, // malformed
			{StudentID: "EST-004", FullName: ""},    // malformed
		}
		res, err := svc.ImportStudents(ctx, grd.ID, rows)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Imported)
		assert.Equal(t, 1, res.Skipped)
		require.Len(t, res.Errors, 2)
		assert.Contains(t, res.Errors[0], "row 4")
		assert.Contains(t, res.Errors[1], "row 5")

		students, err := svc.ListStudents(ctx, grd.ID)
		require.NoError(t, err)
		assert.Len(t, students, 3)
		for _, std := range students {
			if std.StudentID == "EST-003" {
				assert.Equal(t, "Ana Ruiz", std.FullName) // trimmed
			}
		}
	})
}

func TestService_StartNewYear(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := NewService(repo)
	current := time.Now().Year()

	seedGrade(t, repo, 1, "a", current)
	seedGrade(t, repo, 1, "b", current)
	seedGrade(t, repo, 2, "a", current)
	seedGrade(t, repo, 2, "a", current-1) // past year, must not be copied
	seedGrade(t, repo, 1, "a", current+1) // already rolled over once

	year, created, err := svc.StartNewYear(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, current+1, year)
	assert.Equal(t, 2, created) // 1a already exists in the target year

	grades, err := svc.ListGrades(ctx, current + 1)
	require.NoError(t, err)
	assert.Len(t, grades, 3)

	// rerunning is a no-op
	_, created, err = svc.StartNewYear(ctx, current+1)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestService_TopStudents(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	repo.tops = []TopStudent{
		{Student: Student{ID: 1, FullName: "Juan Perez"}, TotalAnnotations: 3, TotalPoints: 15},
		{Student: Student{ID: 2, FullName: "Maria Lopez"}, TotalAnnotations: 1, TotalPoints: 5},
		{Student: Student{ID: 3, FullName: "Ana Ruiz"}, TotalAnnotations: 1, TotalPoints: 3},
	}
	svc := NewService(repo)

	tops, err := svc.TopStudents(ctx, 0, 0) // default limit
	require.NoError(t, err)
	require.Len(t, tops, 3)

	assert.Equal(t, 0, tops[0].Conduct)
	assert.Equal(t, annotation.TierCritical, tops[0].Tier)
	assert.Equal(t, 5, tops[1].Conduct)
	assert.Equal(t, annotation.TierLow, tops[1].Tier)
	assert.Equal(t, 7, tops[2].Conduct)
	assert.Equal(t, annotation.TierFair, tops[2].Tier)

	tops, err = svc.TopStudents(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, tops, 2)
}

func TestService_ListGrades_defaultsYear(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := NewService(repo)
	current := time.Now().Year()

	seedGrade(t, repo, 3, "a", current)
	seedGrade(t, repo, 3, "a", current-1)

	grades, err := svc.ListGrades(ctx, 0)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, current, grades[0].Year)
}
