package inmemdb

import (
	"sync"

	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
)

type (
	DB struct {
		user       *userTable
		assignment *assignmentTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	assignmentTable struct {
		mutex sync.RWMutex
		table map[string]*assignment.Assignment
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.assignment.mutex.Lock()
	db.assignment.table = make(map[string]*assignment.Assignment)
	db.assignment.mutex.Unlock()
}
