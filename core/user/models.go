package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/attendly/attendly/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Profile struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	StudentID  string `json:"student_id"`
	EmployeeID string `json:"employee_id"`
	Phone      string `json:"phone"`
	Avatar     string `json:"avatar"`
}

// PushSubscription is a browser Push API subscription.
type PushSubscription struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type User struct {
	ID                 string            `json:"id"`
	OrganizationID     string            `json:"organization_id"`
	Username           string            `json:"username"`
	Email              string            `json:"email"`
	Role               string            `json:"role"`
	Profile            Profile           `json:"profile"`
	RequiredPercentage float64           `json:"required_attendance_percentage"`
	PushSubscription   *PushSubscription `json:"-"`
	IsActive           bool              `json:"is_active"`
	PasswordHash       []byte            `json:"-"`
	LastLogin          time.Time         `json:"last_login"` // UTC
	CreatedAt          time.Time         `json:"created_at"` // UTC
	UpdatedAt          time.Time         `json:"updated_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) FullName() string {
	name := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

func (u User) HasPushSubscription() bool {
	return u.PushSubscription != nil && u.PushSubscription.Endpoint != ""
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	OrganizationID     string   `json:"-"`
	Username           string   `json:"username" validate:"required,min=3,max=30,alphanum_"`
	Email              string   `json:"email" validate:"required,email"`
	Password           string   `json:"password" validate:"required"`
	Role               string   `json:"role" validate:"omitempty,role"`
	FirstName          string   `json:"first_name" validate:"max=50"`
	LastName           string   `json:"last_name" validate:"max=50"`
	RequiredPercentage *float64 `json:"required_attendance_percentage" validate:"omitempty,min=0,max=100"`
}

func (nu *NewUser) clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
}

// ValidateFields validates nu without checking its uniqueness in the organization.
func (nu *NewUser) ValidateFields(validate *validator.Validate) error {
	nu.clean()
	return validate.Struct(nu)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	if err := nu.ValidateFields(validate); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.OrganizationID, nu.Username, nu.Email)
}

// UpdateRoleStatus defines what an admin may change on a User of their organization.
type UpdateRoleStatus struct {
	Role     *string `json:"role" validate:"omitempty,role"`
	IsActive *bool   `json:"is_active"`
}

func (ur *UpdateRoleStatus) Validate(validate *validator.Validate) error {
	if ur.Role != nil {
		*ur.Role = core.CleanString(*ur.Role, true /* lower */)
	}
	return validate.Struct(ur)
}

type GetFilter struct {
	ID              string
	OrganizationID  string
	Username        string
	UsernameOrEmail string
}

type QueryFilter struct {
	OrganizationID string `query:"-"`
	Role           string `query:"role"`
	Search         string `query:"search"`
	IsActive       *bool  `query:"is_active"`
	Page           int    `query:"page"`
	Limit          int    `query:"limit"` // 0: no limit
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Clean normalizes the filter for a paginated API query.
func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	if !IsValidRole(qf.Role) {
		qf.Role = ""
	}
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.Limit < 1 {
		qf.Limit = defaultPageLimit
	} else if qf.Limit > maxPageLimit {
		qf.Limit = maxPageLimit
	}
}

// Offset is the number of users skipped before the current page.
func (qf QueryFilter) Offset() int {
	if qf.Page < 1 || qf.Limit < 1 {
		return 0
	}
	return (qf.Page - 1) * qf.Limit
}

// Stats counts the users of an organization.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Admins   int `json:"admins"`
	Teachers int `json:"teachers"`
	Students int `json:"students"`
}
