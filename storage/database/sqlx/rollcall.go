package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/rollcall"
)

var recordColumns = []string{
	"id", "organization_id", "student_id", "date", "status", "marked_by", "marked_at", "notes", "created_at", "updated_at",
}

type recordRow struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	StudentID      string    `db:"student_id"`
	Date           time.Time `db:"date"`
	Status         string    `db:"status"`
	MarkedBy       string    `db:"marked_by"`
	MarkedAt       time.Time `db:"marked_at"`
	Notes          string    `db:"notes"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r recordRow) record() rollcall.Record {
	return rollcall.Record{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		StudentID:      r.StudentID,
		Date:           r.Date.UTC(),
		Status:         r.Status,
		MarkedBy:       r.MarkedBy,
		MarkedAt:       r.MarkedAt.UTC(),
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type rollcallRepository struct {
	db *sqlx.DB
}

var _ rollcall.Repository = (*rollcallRepository)(nil) // interface compliance check

func NewRollcallRepository(db *sqlx.DB) rollcall.Repository {
	return &rollcallRepository{db: db}
}

// upsertRecordBuilder inserts r or, when the student already has a record that day, overwrites it
// keeping its id and creation time.
func upsertRecordBuilder(r rollcall.Record) sq.InsertBuilder {
	return psql.Insert("attendance_records").Columns(recordColumns...).
		Values(
			newID(), r.OrganizationID, r.StudentID, r.Date.UTC(), r.Status,
			r.MarkedBy, r.MarkedAt.UTC(), r.Notes, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
		).
		Suffix(
			"ON CONFLICT (student_id, date) DO UPDATE SET " +
				"organization_id = EXCLUDED.organization_id, status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, " +
				"marked_at = EXCLUDED.marked_at, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at " +
				"RETURNING " + joinColumns(recordColumns),
		)
}

func (repo *rollcallRepository) UpsertRecord(ctx context.Context, r rollcall.Record) (rollcall.Record, error) {
	var row recordRow
	if err := get(ctx, repo.db, &row, upsertRecordBuilder(r)); err != nil {
		return rollcall.Record{}, errors.Wrap(err, "saving attendance record")
	}
	return row.record(), nil
}

func queryRecordsBuilder(filter rollcall.QueryFilter) sq.SelectBuilder {
	b := psql.Select(recordColumns...).From("attendance_records").OrderBy("date DESC", "student_id ASC")
	if filter.OrganizationID != "" {
		b = b.Where(sq.Eq{"organization_id": filter.OrganizationID})
	}
	if filter.StudentID != "" {
		b = b.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{"date": filter.From.UTC()})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{"date": filter.To.UTC()})
	}
	return b
}

func (repo *rollcallRepository) QueryRecords(ctx context.Context, filter rollcall.QueryFilter) ([]rollcall.Record, error) {
	var rows []recordRow
	if err := selectAll(ctx, repo.db, &rows, queryRecordsBuilder(filter)); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	records := make([]rollcall.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}
