package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/attendance"
)

// Entry is the attendance of one calendar day.
type Entry struct {
	Date     time.Time `json:"date"` // UTC midnight
	Attended bool      `json:"attended"`
}

type Course struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"course_name"`
	Code            string    `json:"course_code"`
	Instructor      string    `json:"instructor"`
	TotalClasses    int       `json:"total_classes"`
	AttendedClasses int       `json:"attended_classes"`
	Records         []Entry   `json:"attendance_records"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (c Course) Tally(target float64) attendance.Tally {
	return attendance.Tally{Attended: c.AttendedClasses, Total: c.TotalClasses, Target: target}
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name       string `json:"course_name" validate:"required,notblank,max=100"`
	Code       string `json:"course_code" validate:"required,notblank,max=30"`
	Instructor string `json:"instructor" validate:"required,notblank,max=100"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Instructor = core.CleanString(nc.Instructor)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Name            *string `json:"course_name" validate:"omitempty,notblank,max=100"`
	Code            *string `json:"course_code" validate:"omitempty,notblank,max=30"`
	Instructor      *string `json:"instructor" validate:"omitempty,notblank,max=100"`
	TotalClasses    *int    `json:"total_classes" validate:"omitempty,min=0"`
	AttendedClasses *int    `json:"attended_classes" validate:"omitempty,min=0"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uc.Name, uc.Code, uc.Instructor} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uc)
}

// MarkAttendance records whether the class of Date (today when empty) was attended.
type MarkAttendance struct {
	Attended *bool  `json:"attended" validate:"required"`
	Date     string `json:"date"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.Date = core.CleanString(ma.Date)
	if err := validate.Struct(ma); err != nil {
		return err
	}
	if ma.Date != "" {
		if _, err := core.ParseDate(ma.Date); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: errInvalidDate})
		}
	}
	return nil
}

// AdjustAttendance sets the counters of a Course directly.
type AdjustAttendance struct {
	TotalClasses    *int `json:"total_classes" validate:"required,min=0"`
	AttendedClasses *int `json:"attended_classes" validate:"required,min=0"`
}

func (aa *AdjustAttendance) Validate(validate *validator.Validate) error {
	if err := validate.Struct(aa); err != nil {
		return err
	}
	if *aa.AttendedClasses > *aa.TotalClasses {
		return core.NewValidationError(nil, core.FieldError{Field: "attended_classes", Error: errAttendedExceedsTotal})
	}
	return nil
}

// ThresholdRequest asks how a Course stands against a target percentage.
type ThresholdRequest struct {
	Threshold *float64 `json:"threshold" validate:"required,min=0,max=100"`
}

func (tr *ThresholdRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}

type ThresholdResult struct {
	Message           string  `json:"message"`
	CurrentPercentage float64 `json:"current_percentage"`
}

// CourseStanding is the Standing of one Course.
type CourseStanding struct {
	CourseID string              `json:"course_id"`
	Name     string              `json:"course_name"`
	Code     string              `json:"course_code"`
	Standing attendance.Standing `json:"standing"`
	Message  string              `json:"message"`
}

// Overall is the Standing of all the courses of a user combined.
type Overall struct {
	Standing attendance.Standing `json:"standing"`
	Message  string              `json:"message"`
	Courses  []CourseStanding    `json:"courses"`
}
