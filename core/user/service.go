package user

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists in this organization")
	ErrUsernameExists       = errors.New("a user with this username already exists in this organization")
	ErrCannotDeactivateSelf = errors.New("you cannot deactivate your own account")
	ErrCannotDeleteSelf     = errors.New("you cannot delete your own account")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user of the
		// organization (not in excludedIDs) already uses username or email.
		CheckUniqueness(ctx context.Context, orgID, username, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields and returns the
		// requested page along with the total count of matching users.
		// QueryFilter.Search does a case-insensitive match on one of username, email, first or last name.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, int, error)
		CountUsers(ctx context.Context, orgID string) (Stats, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo                      Repository
		defaultRequiredPercentage float64
	}
)

// OrderingFields maps the API ordering fields to their columns.
var OrderingFields = map[string]string{
	"username":   "username",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:                      repo,
		defaultRequiredPercentage: conf.Attendance.DefaultRequiredPercentage,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, orgID, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, orgID, uname, email, excludedIDs...); err != nil {
		switch errors.Cause(err) {
		case ErrUsernameExists, ErrEmailExists:
			return core.NewConflictError(err)
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	pct := svc.defaultRequiredPercentage
	if nu.RequiredPercentage != nil {
		pct = *nu.RequiredPercentage
	}

	now := NowFunc().UTC()
	usr := User{
		OrganizationID:     nu.OrganizationID,
		Username:           nu.Username,
		Email:              nu.Email,
		Role:               role,
		Profile:            Profile{FirstName: nu.FirstName, LastName: nu.LastName},
		RequiredPercentage: pct,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

// GetInOrganization finds a User by ID among the users of an organization.
func (svc *Service) GetInOrganization(ctx context.Context, orgID, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id, OrganizationID: orgID})
}

func (svc *Service) GetByUsername(ctx context.Context, orgID, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{OrganizationID: orgID, Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, orgID, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{OrganizationID: orgID, UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, core.Pagination, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields)
	users, total, err := svc.repo.QueryUsers(ctx, filter, ordering)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying users")
	}
	return users, core.NewPagination(total, filter.Page, filter.Limit), nil
}

func (svc *Service) Stats(ctx context.Context, orgID string) (Stats, error) {
	return svc.repo.CountUsers(ctx, orgID)
}

// UpdateRoleStatus changes the role and/or the active status of usr on behalf of actor.
func (svc *Service) UpdateRoleStatus(ctx context.Context, actor, usr User, data UpdateRoleStatus) (User, error) {
	if actor.ID == usr.ID && data.IsActive != nil && !*data.IsActive {
		return User{}, core.NewValidationError(ErrCannotDeactivateSelf)
	}
	if data.Role != nil {
		usr.Role = *data.Role
	}
	if data.IsActive != nil {
		usr.IsActive = *data.IsActive
	}
	return svc.update(ctx, usr)
}

// Delete deletes usr on behalf of actor.
func (svc *Service) Delete(ctx context.Context, actor, usr User) error {
	if actor.ID == usr.ID {
		return core.NewValidationError(ErrCannotDeleteSelf)
	}
	return svc.repo.DeleteUser(ctx, usr.ID)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.update(ctx, usr)
}

// SetPushSubscription stores the browser push subscription of usr, nil unsubscribes.
func (svc *Service) SetPushSubscription(ctx context.Context, usr User, sub *PushSubscription) (User, error) {
	usr.PushSubscription = sub
	return svc.update(ctx, usr)
}

func (svc *Service) SetRequiredPercentage(ctx context.Context, usr User, pct float64) (User, error) {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return User{}, core.NewValidationError(nil, core.FieldError{
			Field: "percentage",
			Error: "invalid percentage value, must be between 0 and 100",
		})
	}
	usr.RequiredPercentage = pct
	return svc.update(ctx, usr)
}

// ResetPassword sets a new password for usr after applying the password policy.
func (svc *Service) ResetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := ValidatePassword(pwd, usr); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.update(ctx, usr)
}

// QueryReminderRecipients returns all the active users of an organization.
func (svc *Service) QueryReminderRecipients(ctx context.Context, orgID string) ([]User, error) {
	yes := true
	users, _, err := svc.repo.QueryUsers(ctx, QueryFilter{OrganizationID: orgID, IsActive: &yes}, nil)
	return users, err
}

func (svc *Service) update(ctx context.Context, usr User) (User, error) {
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
