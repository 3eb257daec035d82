package inmemdb

import (
	"context"
	"sort"

	"github.com/attendly/attendly/core/organization"
)

type organizationRepository struct {
	db *DB
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(db *DB) organization.Repository {
	return &organizationRepository{db: db}
}

func (repo *organizationRepository) CreateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, o := range repo.db.organizations {
		if o.Slug == org.Slug {
			return organization.Organization{}, organization.ErrSlugExists
		}
	}
	org.ID = newID()
	repo.db.organizations[org.ID] = &org
	return org, nil
}

func (repo *organizationRepository) GetOrganization(_ context.Context, filter organization.GetFilter) (organization.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, org := range repo.db.organizations {
		if filter.ID != "" && org.ID != filter.ID {
			continue
		}
		if filter.Slug != "" && org.Slug != filter.Slug {
			continue
		}
		return *org, nil
	}
	return organization.Organization{}, organization.ErrNotFound
}

func (repo *organizationRepository) QueryOrganizations(_ context.Context, filter organization.QueryFilter) ([]organization.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orgs := make([]organization.Organization, 0)
	for _, org := range repo.db.organizations {
		if filter.IsActive != nil && org.IsActive != *filter.IsActive {
			continue
		}
		if filter.RemindersEnabled != nil && org.Settings.EnableReminders != *filter.RemindersEnabled {
			continue
		}
		orgs = append(orgs, *org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreatedAt.Before(orgs[j].CreatedAt) })
	return orgs, nil
}

func (repo *organizationRepository) UpdateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.organizations[org.ID]; !ok {
		return organization.Organization{}, organization.ErrNotFound
	}
	for _, o := range repo.db.organizations {
		if o.ID != org.ID && o.Slug == org.Slug {
			return organization.Organization{}, organization.ErrSlugExists
		}
	}
	repo.db.organizations[org.ID] = &org
	return org, nil
}

func (repo *organizationRepository) DeleteOrganization(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.organizations, id)
	for uid, usr := range repo.db.users {
		if usr.OrganizationID == id {
			repo.db.deleteUser(uid)
		}
	}
	return nil
}
