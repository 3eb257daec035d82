package inmemdb

import (
	"context"

	"github.com/attendly/attendly/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db}
}

func copyTimetable(tt timetable.Timetable) timetable.Timetable {
	classes := make([]timetable.Class, len(tt.Classes))
	copy(classes, tt.Classes)
	tt.Classes = classes
	return tt
}

func (repo *timetableRepository) GetTimetable(_ context.Context, userID string) (timetable.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tt, ok := repo.db.timetables[userID]; ok {
		return copyTimetable(*tt), nil
	}
	return timetable.Timetable{}, timetable.ErrNotFound
}

func (repo *timetableRepository) SaveTimetable(_ context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tt = copyTimetable(tt)
	repo.db.timetables[tt.UserID] = &tt
	return copyTimetable(tt), nil
}
