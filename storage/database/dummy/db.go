// Package dummydb provides in-memory Repository implementations for tests.
package dummydb

import (
	"sync"

	"github.com/interamericana/registro/core/annotation"
	"github.com/interamericana/registro/core/emergency"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
)

type (
	DB struct {
		user       *userTable
		grade      *gradeTable
		student    *studentTable
		annotation *annotationTable
		emergency  *emergencyTable
	}

	userTable struct {
		sync.RWMutex
		table map[int64]*user.User
		pk    int64
	}

	gradeTable struct {
		sync.RWMutex
		table map[int64]*school.Grade
		pk    int64
	}

	studentTable struct {
		sync.RWMutex
		table map[int64]*school.Student
		pk    int64
	}

	annotationTable struct {
		sync.RWMutex
		table map[int64]*annotation.Annotation
		pk    int64
	}

	emergencyTable struct {
		sync.RWMutex
		table map[int64]*emergency.Request
		pk    int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[int64]*user.User)},
		grade:      &gradeTable{table: make(map[int64]*school.Grade)},
		student:    &studentTable{table: make(map[int64]*school.Student)},
		annotation: &annotationTable{table: make(map[int64]*annotation.Annotation)},
		emergency:  &emergencyTable{table: make(map[int64]*emergency.Request)},
	}
	return db, nil
}
