// Package inmemdb provides mutex-guarded in-memory repositories, used by tests and the "memory" database engine.
package inmemdb

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
)

// DB holds every table behind a single lock so that cascading deletes stay consistent.
type DB struct {
	sync.RWMutex
	organizations map[string]*organization.Organization
	users         map[string]*user.User
	courses       map[string]*course.Course
	timetables    map[string]*timetable.Timetable // {userID: timetable}
	records       map[string]*rollcall.Record
}

func Open() *DB {
	return &DB{
		organizations: make(map[string]*organization.Organization),
		users:         make(map[string]*user.User),
		courses:       make(map[string]*course.Course),
		timetables:    make(map[string]*timetable.Timetable),
		records:       make(map[string]*rollcall.Record),
	}
}

// Reset empties all the tables.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()
	db.organizations = make(map[string]*organization.Organization)
	db.users = make(map[string]*user.User)
	db.courses = make(map[string]*course.Course)
	db.timetables = make(map[string]*timetable.Timetable)
	db.records = make(map[string]*rollcall.Record)
}

// PingContext always succeeds, it mirrors *sql.DB for health checks.
func (db *DB) PingContext(context.Context) error { return nil }

func newID() string {
	return uuid.New().String()
}

// deleteUser removes a user along with everything it owns. The caller holds the write lock.
func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	delete(db.timetables, id)
	for cid, c := range db.courses {
		if c.UserID == id {
			delete(db.courses, cid)
		}
	}
	for rid, r := range db.records {
		if r.StudentID == id {
			delete(db.records, rid)
		}
	}
}
