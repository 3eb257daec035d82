package timetable

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("timetable not found")
	ErrClassNotFound = errors.New("class not found")
)

type (
	Repository interface {
		// GetTimetable returns ErrNotFound when the user never saved a timetable.
		GetTimetable(ctx context.Context, userID string) (Timetable, error)
		// SaveTimetable creates or replaces the timetable of tt.UserID.
		SaveTimetable(ctx context.Context, tt Timetable) (Timetable, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the timetable of a user, an empty one if none was saved yet.
func (svc *Service) Get(ctx context.Context, userID string) (Timetable, error) {
	tt, err := svc.repo.GetTimetable(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Timetable{UserID: userID, Classes: []Class{}}, nil
		}
		return Timetable{}, err
	}
	if tt.Classes == nil {
		tt.Classes = []Class{}
	}
	return tt, nil
}

func newClass(nc NewClass) Class {
	return Class{ID: uuid.New().String(), Day: nc.Day, Subject: nc.Subject, Time: nc.Time}
}

// Save replaces all the classes of the user's timetable.
func (svc *Service) Save(ctx context.Context, userID string, st SaveTimetable) (Timetable, error) {
	classes := make([]Class, 0, len(st.Classes))
	for _, nc := range st.Classes {
		classes = append(classes, newClass(nc))
	}
	return svc.save(ctx, Timetable{UserID: userID, Classes: classes})
}

func (svc *Service) AddClass(ctx context.Context, userID string, nc NewClass) (Timetable, error) {
	tt, err := svc.Get(ctx, userID)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "getting timetable")
	}
	tt.Classes = append(tt.Classes, newClass(nc))
	return svc.save(ctx, tt)
}

func (svc *Service) UpdateClass(ctx context.Context, userID, classID string, uc UpdateClass) (Timetable, error) {
	tt, err := svc.Get(ctx, userID)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "getting timetable")
	}
	i := indexOf(tt.Classes, classID)
	if i < 0 {
		return Timetable{}, ErrClassNotFound
	}
	if uc.Day != nil {
		tt.Classes[i].Day = *uc.Day
	}
	if uc.Subject != nil {
		tt.Classes[i].Subject = *uc.Subject
	}
	if uc.Time != nil {
		tt.Classes[i].Time = *uc.Time
	}
	return svc.save(ctx, tt)
}

func (svc *Service) RemoveClass(ctx context.Context, userID, classID string) (Timetable, error) {
	tt, err := svc.Get(ctx, userID)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "getting timetable")
	}
	i := indexOf(tt.Classes, classID)
	if i < 0 {
		return Timetable{}, ErrClassNotFound
	}
	tt.Classes = append(tt.Classes[:i:i], tt.Classes[i+1:]...)
	return svc.save(ctx, tt)
}

func (svc *Service) save(ctx context.Context, tt Timetable) (Timetable, error) {
	tt.UpdatedAt = NowFunc().UTC()
	return svc.repo.SaveTimetable(ctx, tt)
}

func indexOf(classes []Class, id string) int {
	for i, c := range classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ByDay groups the classes of tt per weekday, Monday first, each day sorted by time.
func ByDay(tt Timetable) []DaySchedule {
	days := make([]DaySchedule, 0, len(Weekdays))
	for _, wd := range Weekdays {
		days = append(days, DaySchedule{Day: wd, Classes: classesOf(tt, wd)})
	}
	return days
}

// Today returns the classes of the weekday of now.
func Today(tt Timetable, now time.Time) DaySchedule {
	wd := now.Weekday().String()
	return DaySchedule{Day: wd, Classes: classesOf(tt, wd)}
}

func classesOf(tt Timetable, day string) []Class {
	classes := make([]Class, 0)
	for _, c := range tt.Classes {
		if c.Day == day {
			classes = append(classes, c)
		}
	}
	sort.SliceStable(classes, func(i, j int) bool {
		mi, erri := ParseClock(classes[i].Time)
		mj, errj := ParseClock(classes[j].Time)
		if erri != nil || errj != nil {
			return erri == nil // unparsable times last
		}
		return mi < mj
	})
	return classes
}
