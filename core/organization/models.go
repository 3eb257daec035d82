package organization

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
)

// Types
const (
	TypeSchool     = "school"
	TypeCollege    = "college"
	TypeUniversity = "university"
	TypeInstitute  = "institute"
)

// Plans
const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

const (
	DefaultTimezone = "Asia/Kolkata"
	DefaultMaxUsers = 100
)

var (
	slugStripRegex = regexp.MustCompile(`[^\w\s-]`)
	slugSepRegex   = regexp.MustCompile(`[\s_-]+`)
)

type Settings struct {
	AcademicYearStart time.Time `json:"academic_year_start"`
	MinimumAttendance float64   `json:"minimum_attendance"`
	EnableReminders   bool      `json:"enable_reminders"`
	Timezone          string    `json:"timezone"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Type         string    `json:"type"`
	Settings     Settings  `json:"settings"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	Address      Address   `json:"address"`
	Logo         string    `json:"logo"`
	IsActive     bool      `json:"is_active"`
	Plan         string    `json:"plan"`
	MaxUsers     int       `json:"max_users"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Summary is the public view of an Organization, shown before registering to it.
type Summary struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Type         string `json:"type"`
	ContactEmail string `json:"contact_email"`
}

func (org Organization) Summary() Summary {
	return Summary{Name: org.Name, Slug: org.Slug, Type: org.Type, ContactEmail: org.ContactEmail}
}

// Location returns the organization's time zone, UTC if it cannot be loaded.
func (org Organization) Location() *time.Location {
	if loc, err := time.LoadLocation(org.Settings.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Slugify turns an organization name into its registration code:
// "St. Mary's College" -> "st-marys-college".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStripRegex.ReplaceAllString(s, "")
	s = slugSepRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewOrganization contains information needed to create a new Organization.
type NewOrganization struct {
	Name         string `json:"name" validate:"required,notblank,max=100"`
	Type         string `json:"type" validate:"omitempty,oneof=school college university institute"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"omitempty,max=30"`
}

func (no *NewOrganization) Validate(validate *validator.Validate) error {
	no.Name = core.CleanString(no.Name)
	no.Type = core.CleanString(no.Type, true /* lower */)
	no.ContactEmail = core.CleanString(no.ContactEmail, true /* lower */)
	no.ContactPhone = core.CleanString(no.ContactPhone)

	if err := validate.Struct(no); err != nil {
		return err
	}
	if Slugify(no.Name) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: errNameNoSlug})
	}
	return nil
}

type UpdateSettings struct {
	AcademicYearStart *time.Time `json:"academic_year_start"`
	MinimumAttendance *float64   `json:"minimum_attendance" validate:"omitempty,min=0,max=100"`
	EnableReminders   *bool      `json:"enable_reminders"`
	Timezone          *string    `json:"timezone" validate:"omitempty,tzname"`
}

// UpdateOrganization defines what information may be provided to modify an existing Organization.
// Settings are merged into the current ones.
type UpdateOrganization struct {
	Name         *string         `json:"name" validate:"omitempty,notblank,max=100"`
	Type         *string         `json:"type" validate:"omitempty,oneof=school college university institute"`
	ContactEmail *string         `json:"contact_email" validate:"omitempty,email"`
	ContactPhone *string         `json:"contact_phone" validate:"omitempty,max=30"`
	Address      *Address        `json:"address"`
	Logo         *string         `json:"logo" validate:"omitempty,url"`
	Settings     *UpdateSettings `json:"settings"`
}

func (uo *UpdateOrganization) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	clean(uo.Name, false)
	clean(uo.Type, true)
	clean(uo.ContactEmail, true)
	clean(uo.ContactPhone, false)
	clean(uo.Logo, false)
	if uo.Settings != nil {
		clean(uo.Settings.Timezone, false)
	}
	return validate.Struct(uo)
}

// apply merges uo into org.
func (uo UpdateOrganization) apply(org Organization) Organization {
	if uo.Name != nil {
		org.Name = *uo.Name
	}
	if uo.Type != nil {
		org.Type = *uo.Type
	}
	if uo.ContactEmail != nil {
		org.ContactEmail = *uo.ContactEmail
	}
	if uo.ContactPhone != nil {
		org.ContactPhone = *uo.ContactPhone
	}
	if uo.Address != nil {
		org.Address = *uo.Address
	}
	if uo.Logo != nil {
		org.Logo = *uo.Logo
	}
	if s := uo.Settings; s != nil {
		if s.AcademicYearStart != nil {
			org.Settings.AcademicYearStart = s.AcademicYearStart.UTC()
		}
		if s.MinimumAttendance != nil {
			org.Settings.MinimumAttendance = *s.MinimumAttendance
		}
		if s.EnableReminders != nil {
			org.Settings.EnableReminders = *s.EnableReminders
		}
		if s.Timezone != nil {
			org.Settings.Timezone = *s.Timezone
		}
	}
	return org
}

type GetFilter struct {
	ID   string
	Slug string
}

type QueryFilter struct {
	IsActive         *bool
	RemindersEnabled *bool
}
