// Package rollcall manages the daily attendance that teachers mark for the students of their organization.
package rollcall

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/attendance"
	"github.com/attendly/attendly/core/user"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

type Record struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	StudentID      string    `json:"student_id"`
	Date           time.Time `json:"date"` // UTC midnight
	Status         string    `json:"status"`
	MarkedBy       string    `json:"marked_by"`
	MarkedAt       time.Time `json:"marked_at"` // UTC
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Person is the public view of a User shown next to attendance records.
type Person struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email,omitempty"`
	Profile  user.Profile `json:"profile"`
}

func NewPerson(usr user.User) Person {
	return Person{ID: usr.ID, Username: usr.Username, Email: usr.Email, Profile: usr.Profile}
}

type MarkItem struct {
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// MarkRequest marks the attendance of several students for Date (today when empty).
type MarkRequest struct {
	Items []MarkItem `json:"attendance_data" validate:"required"`
	Date  string     `json:"date"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.Date = core.CleanString(mr.Date)
	if err := validate.Struct(mr); err != nil {
		return err
	}
	if mr.Date != "" {
		if _, err := core.ParseDate(mr.Date); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: errInvalidDate})
		}
	}
	return nil
}

type ItemError struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

type MarkResult struct {
	Message string      `json:"message"`
	Marked  int         `json:"marked"`
	Errors  []ItemError `json:"errors,omitempty"`
	Records []Record    `json:"records"`
}

// DateRange bounds queries by calendar day, both ends inclusive. Zero values are open ends.
type DateRange struct {
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`

	from, to time.Time
}

func (dr *DateRange) Validate() error {
	var flds []core.FieldError
	var err error
	if dr.StartDate = core.CleanString(dr.StartDate); dr.StartDate != "" {
		if dr.from, err = core.ParseDate(dr.StartDate); err != nil {
			flds = append(flds, core.FieldError{Field: "start_date", Error: errInvalidDate})
		}
	}
	if dr.EndDate = core.CleanString(dr.EndDate); dr.EndDate != "" {
		if dr.to, err = core.ParseDate(dr.EndDate); err != nil {
			flds = append(flds, core.FieldError{Field: "end_date", Error: errInvalidDate})
		}
	}
	if flds == nil && !dr.from.IsZero() && !dr.to.IsZero() && dr.to.Before(dr.from) {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "end date cannot be before start date"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (dr DateRange) IsZero() bool { return dr.from.IsZero() && dr.to.IsZero() }

type QueryFilter struct {
	OrganizationID string
	StudentID      string
	From           time.Time // inclusive
	To             time.Time // inclusive
}

type DateRecord struct {
	Record
	Student Person `json:"student"`
	Marker  Person `json:"marker"`
}

type DateAttendance struct {
	Date         time.Time    `json:"date"`
	TotalRecords int          `json:"total_records"`
	Records      []DateRecord `json:"records"`
}

type Statistics struct {
	TotalDays  int                 `json:"total_days"`
	Present    int                 `json:"present"`
	Absent     int                 `json:"absent"`
	Percentage float64             `json:"percentage"` // rounded to 2 decimals
	Standing   attendance.Standing `json:"standing"`   // against the organization's minimum attendance
	Message    string              `json:"message"`
}

type StudentAttendance struct {
	Student    Person     `json:"student"`
	Records    []Record   `json:"records"`
	Statistics Statistics `json:"statistics"`
}

type ReportRow struct {
	Student    Person  `json:"student"`
	TotalDays  int     `json:"total_days"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"` // rounded to 1 decimal
}

type Report struct {
	DateRange     interface{} `json:"date_range"`
	TotalStudents int         `json:"total_students"`
	Report        []ReportRow `json:"report"`
}
