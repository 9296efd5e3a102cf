// Package inmemdb provides map-backed repositories for tests and local
// development. All tables share one lock; contention is irrelevant at this
// scale.
package inmemdb

import (
	"sync"

	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/room"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users       map[string]*user.User
	classes     map[string]*classroom.Class
	memberships map[string]*classroom.Membership // keyed classID + "/" + studentID
	tasks       map[string]*classroom.Task
	submissions map[string]*classroom.Submission // keyed taskID + "/" + studentID
	rooms       map[string]*room.Room
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		classes:     make(map[string]*classroom.Class),
		memberships: make(map[string]*classroom.Membership),
		tasks:       make(map[string]*classroom.Task),
		submissions: make(map[string]*classroom.Submission),
		rooms:       make(map[string]*room.Room),
	}
}
