package inmemdb

import (
	"context"
	"sort"

	"github.com/attendly/attendly/core/rollcall"
)

type rollcallRepository struct {
	db *DB
}

var _ rollcall.Repository = (*rollcallRepository)(nil) // interface compliance check

func NewRollcallRepository(db *DB) rollcall.Repository {
	return &rollcallRepository{db: db}
}

func (repo *rollcallRepository) UpsertRecord(_ context.Context, r rollcall.Record) (rollcall.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.records {
		if existing.StudentID == r.StudentID && existing.Date.Equal(r.Date) {
			r.ID = existing.ID
			r.CreatedAt = existing.CreatedAt
			break
		}
	}
	if r.ID == "" {
		r.ID = newID()
	}
	repo.db.records[r.ID] = &r
	return r, nil
}

func (repo *rollcallRepository) QueryRecords(_ context.Context, filter rollcall.QueryFilter) ([]rollcall.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]rollcall.Record, 0)
	for _, r := range repo.db.records {
		if filter.OrganizationID != "" && r.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if !filter.From.IsZero() && r.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.Date.After(filter.To) {
			continue
		}
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date.Equal(records[j].Date) {
			return records[i].StudentID < records[j].StudentID
		}
		return records[i].Date.After(records[j].Date)
	})
	return records, nil
}
