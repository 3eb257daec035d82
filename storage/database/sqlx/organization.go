package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/organization"
)

var orgColumns = []string{
	"id", "name", "slug", "type", "academic_year_start", "minimum_attendance", "enable_reminders", "timezone",
	"contact_email", "contact_phone", "address_street", "address_city", "address_state", "address_country",
	"address_postal_code", "logo", "is_active", "plan", "max_users", "created_at", "updated_at",
}

type orgRow struct {
	ID                string       `db:"id"`
	Name              string       `db:"name"`
	Slug              string       `db:"slug"`
	Type              string       `db:"type"`
	AcademicYearStart sql.NullTime `db:"academic_year_start"`
	MinimumAttendance float64      `db:"minimum_attendance"`
	EnableReminders   bool         `db:"enable_reminders"`
	Timezone          string       `db:"timezone"`
	ContactEmail      string       `db:"contact_email"`
	ContactPhone      string       `db:"contact_phone"`
	Street            string       `db:"address_street"`
	City              string       `db:"address_city"`
	State             string       `db:"address_state"`
	Country           string       `db:"address_country"`
	PostalCode        string       `db:"address_postal_code"`
	Logo              string       `db:"logo"`
	IsActive          bool         `db:"is_active"`
	Plan              string       `db:"plan"`
	MaxUsers          int          `db:"max_users"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

func (r orgRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Slug, r.Type, r.AcademicYearStart, r.MinimumAttendance, r.EnableReminders, r.Timezone,
		r.ContactEmail, r.ContactPhone, r.Street, r.City, r.State, r.Country,
		r.PostalCode, r.Logo, r.IsActive, r.Plan, r.MaxUsers, r.CreatedAt, r.UpdatedAt,
	}
}

func toOrgRow(org organization.Organization) orgRow {
	return orgRow{
		ID:                org.ID,
		Name:              org.Name,
		Slug:              org.Slug,
		Type:              org.Type,
		AcademicYearStart: nullTime(org.Settings.AcademicYearStart),
		MinimumAttendance: org.Settings.MinimumAttendance,
		EnableReminders:   org.Settings.EnableReminders,
		Timezone:          org.Settings.Timezone,
		ContactEmail:      org.ContactEmail,
		ContactPhone:      org.ContactPhone,
		Street:            org.Address.Street,
		City:              org.Address.City,
		State:             org.Address.State,
		Country:           org.Address.Country,
		PostalCode:        org.Address.PostalCode,
		Logo:              org.Logo,
		IsActive:          org.IsActive,
		Plan:              org.Plan,
		MaxUsers:          org.MaxUsers,
		CreatedAt:         org.CreatedAt.UTC(),
		UpdatedAt:         org.UpdatedAt.UTC(),
	}
}

func (r orgRow) organization() organization.Organization {
	return organization.Organization{
		ID:   r.ID,
		Name: r.Name,
		Slug: r.Slug,
		Type: r.Type,
		Settings: organization.Settings{
			AcademicYearStart: fromNullTime(r.AcademicYearStart),
			MinimumAttendance: r.MinimumAttendance,
			EnableReminders:   r.EnableReminders,
			Timezone:          r.Timezone,
		},
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Address: organization.Address{
			Street:     r.Street,
			City:       r.City,
			State:      r.State,
			Country:    r.Country,
			PostalCode: r.PostalCode,
		},
		Logo:      r.Logo,
		IsActive:  r.IsActive,
		Plan:      r.Plan,
		MaxUsers:  r.MaxUsers,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type organizationRepository struct {
	db *sqlx.DB
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(db *sqlx.DB) organization.Repository {
	return &organizationRepository{db: db}
}

func trapSlugErr(err error, msg string) error {
	if _, ok := uniqueConstraint(err); ok {
		return organization.ErrSlugExists
	}
	return errors.Wrap(err, msg)
}

func (repo *organizationRepository) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	org.ID = newID()
	b := psql.Insert("organizations").Columns(orgColumns...).Values(toOrgRow(org).values()...)
	if _, err := exec(ctx, repo.db, b); err != nil {
		return organization.Organization{}, trapSlugErr(err, "inserting organization")
	}
	return org, nil
}

func getOrgFilter(filter organization.GetFilter) sq.Eq {
	where := sq.Eq{}
	if filter.ID != "" {
		where["id"] = filter.ID
	}
	if filter.Slug != "" {
		where["slug"] = filter.Slug
	}
	return where
}

func (repo *organizationRepository) GetOrganization(ctx context.Context, filter organization.GetFilter) (organization.Organization, error) {
	var row orgRow
	b := psql.Select(orgColumns...).From("organizations").Where(getOrgFilter(filter)).Limit(1)
	if err := get(ctx, repo.db, &row, b); err != nil {
		return organization.Organization{}, trapNoRowsErr(err, organization.ErrNotFound, "getting organization")
	}
	return row.organization(), nil
}

func queryOrgsBuilder(filter organization.QueryFilter) sq.SelectBuilder {
	b := psql.Select(orgColumns...).From("organizations").OrderBy("created_at ASC")
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if filter.RemindersEnabled != nil {
		b = b.Where(sq.Eq{"enable_reminders": *filter.RemindersEnabled})
	}
	return b
}

func (repo *organizationRepository) QueryOrganizations(ctx context.Context, filter organization.QueryFilter) ([]organization.Organization, error) {
	var rows []orgRow
	if err := selectAll(ctx, repo.db, &rows, queryOrgsBuilder(filter)); err != nil {
		return nil, errors.Wrap(err, "querying organizations")
	}
	orgs := make([]organization.Organization, 0, len(rows))
	for _, r := range rows {
		orgs = append(orgs, r.organization())
	}
	return orgs, nil
}

func (repo *organizationRepository) UpdateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	r := toOrgRow(org)
	vals := r.values()
	set := make(map[string]interface{}, len(orgColumns)-2)
	for i, col := range orgColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}

	res, err := exec(ctx, repo.db, psql.Update("organizations").SetMap(set).Where(sq.Eq{"id": org.ID}))
	if err != nil {
		return organization.Organization{}, trapSlugErr(err, "updating organization")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return organization.Organization{}, organization.ErrNotFound
	}
	return org, nil
}

func (repo *organizationRepository) DeleteOrganization(ctx context.Context, id string) error {
	_, err := exec(ctx, repo.db, psql.Delete("organizations").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting organization")
}
