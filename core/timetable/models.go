package timetable

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
)

var (
	Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

	clockLayouts = []string{"3:04 PM", "3:04PM", "15:04", "3 PM", "3PM"}
)

type Class struct {
	ID      string `json:"id"`
	Day     string `json:"day"`
	Subject string `json:"subject"`
	Time    string `json:"time"`
}

// Timetable is the weekly schedule of a user.
type Timetable struct {
	UserID    string    `json:"user_id"`
	Classes   []Class   `json:"classes"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// DaySchedule holds the classes of a weekday sorted by time.
type DaySchedule struct {
	Day     string  `json:"day"`
	Classes []Class `json:"classes"`
}

// NormalizeDay returns the canonical weekday name ("monday" -> "Monday"), or "" if day is not a weekday.
func NormalizeDay(day string) string {
	day = strings.TrimSpace(day)
	for _, wd := range Weekdays {
		if strings.EqualFold(wd, day) {
			return wd
		}
	}
	return ""
}

// ParseClock parses "9:00 AM", "9:00am", "14:30" or "2 PM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var err error
	for _, layout := range clockLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, err
}

// NewClass contains information needed to add a Class to a Timetable.
type NewClass struct {
	Day     string `json:"day" validate:"required,weekday"`
	Subject string `json:"subject" validate:"required,notblank,max=100"`
	Time    string `json:"time" validate:"required,clock"`
}

func (nc *NewClass) clean() {
	if day := NormalizeDay(nc.Day); day != "" {
		nc.Day = day
	}
	nc.Subject = core.CleanString(nc.Subject)
	nc.Time = core.CleanString(nc.Time)
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.clean()
	return validate.Struct(nc)
}

// SaveTimetable replaces all the classes of a Timetable.
type SaveTimetable struct {
	Classes []NewClass `json:"classes" validate:"dive"`
}

func (st *SaveTimetable) Validate(validate *validator.Validate) error {
	for i := range st.Classes {
		st.Classes[i].clean()
	}
	return validate.Struct(st)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Day     *string `json:"day" validate:"omitempty,weekday"`
	Subject *string `json:"subject" validate:"omitempty,notblank,max=100"`
	Time    *string `json:"time" validate:"omitempty,clock"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	if uc.Day != nil {
		if day := NormalizeDay(*uc.Day); day != "" {
			*uc.Day = day
		}
	}
	if uc.Subject != nil {
		*uc.Subject = core.CleanString(*uc.Subject)
	}
	if uc.Time != nil {
		*uc.Time = core.CleanString(*uc.Time)
	}
	return validate.Struct(uc)
}
