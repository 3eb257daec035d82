package organization

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound   = errors.New("organization not found")
	ErrSlugExists = errors.New("an organization with a similar name already exists")
)

type (
	Repository interface {
		CreateOrganization(ctx context.Context, org Organization) (Organization, error)
		GetOrganization(ctx context.Context, filter GetFilter) (Organization, error)
		QueryOrganizations(ctx context.Context, filter QueryFilter) ([]Organization, error)
		UpdateOrganization(ctx context.Context, org Organization) (Organization, error)
		DeleteOrganization(ctx context.Context, id string) error
	}

	Service struct {
		repo                 Repository
		defaultMinAttendance float64
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:                 repo,
		defaultMinAttendance: conf.Attendance.DefaultRequiredPercentage,
	}
}

// academicYearStart returns July 1st of the current year.
func academicYearStart(now time.Time) time.Time {
	return time.Date(now.Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
}

func (svc *Service) Create(ctx context.Context, no NewOrganization) (Organization, error) {
	slug := Slugify(no.Name)
	if _, err := svc.repo.GetOrganization(ctx, GetFilter{Slug: slug}); err == nil {
		return Organization{}, core.NewConflictError(ErrSlugExists)
	} else if errors.Cause(err) != ErrNotFound {
		return Organization{}, errors.Wrap(err, "checking slug uniqueness")
	}

	orgType := no.Type
	if orgType == "" {
		orgType = TypeCollege
	}
	now := NowFunc().UTC()
	org := Organization{
		Name:         no.Name,
		Slug:         slug,
		Type:         orgType,
		ContactEmail: no.ContactEmail,
		ContactPhone: no.ContactPhone,
		IsActive:     true,
		Plan:         PlanFree,
		MaxUsers:     DefaultMaxUsers,
		Settings: Settings{
			AcademicYearStart: academicYearStart(now),
			MinimumAttendance: svc.defaultMinAttendance,
			EnableReminders:   true,
			Timezone:          DefaultTimezone,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateOrganization(ctx, org)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Organization, error) {
	return svc.repo.GetOrganization(ctx, GetFilter{ID: id})
}

// GetBySlug finds an active Organization by its registration code.
func (svc *Service) GetBySlug(ctx context.Context, slug string) (Organization, error) {
	org, err := svc.repo.GetOrganization(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
	if err != nil {
		return Organization{}, err
	}
	if !org.IsActive {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (svc *Service) Update(ctx context.Context, org Organization, uo UpdateOrganization) (Organization, error) {
	org = uo.apply(org)
	org.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateOrganization(ctx, org)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteOrganization(ctx, id)
}

// QueryReminderEnabled returns the active organizations that have reminders enabled.
func (svc *Service) QueryReminderEnabled(ctx context.Context) ([]Organization, error) {
	yes := true
	return svc.repo.QueryOrganizations(ctx, QueryFilter{IsActive: &yes, RemindersEnabled: &yes})
}
