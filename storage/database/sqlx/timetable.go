package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/timetable"
)

type timetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{db: db}
}

func (repo *timetableRepository) GetTimetable(ctx context.Context, userID string) (timetable.Timetable, error) {
	var updatedAt time.Time
	b := psql.Select("updated_at").From("timetables").Where(sq.Eq{"user_id": userID})
	if err := get(ctx, repo.db, &updatedAt, b); err != nil {
		return timetable.Timetable{}, trapNoRowsErr(err, timetable.ErrNotFound, "getting timetable")
	}

	classes := make([]timetable.Class, 0)
	b = psql.Select("id", "day", "subject", "time").From("timetable_classes").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("position ASC")
	if err := selectAll(ctx, repo.db, &classes, b); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "querying timetable classes")
	}
	return timetable.Timetable{UserID: userID, Classes: classes, UpdatedAt: updatedAt.UTC()}, nil
}

func upsertTimetableBuilder(tt timetable.Timetable) sq.InsertBuilder {
	return psql.Insert("timetables").Columns("user_id", "updated_at").
		Values(tt.UserID, tt.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at")
}

func insertClassesBuilder(tt timetable.Timetable) sq.InsertBuilder {
	b := psql.Insert("timetable_classes").Columns("id", "user_id", "position", "day", "subject", "time")
	for i, c := range tt.Classes {
		b = b.Values(c.ID, tt.UserID, i, c.Day, c.Subject, c.Time)
	}
	return b
}

func (repo *timetableRepository) SaveTimetable(ctx context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, upsertTimetableBuilder(tt)); err != nil {
			return errors.Wrap(err, "saving timetable")
		}
		if _, err := exec(ctx, tx, psql.Delete("timetable_classes").Where(sq.Eq{"user_id": tt.UserID})); err != nil {
			return errors.Wrap(err, "deleting timetable classes")
		}
		if len(tt.Classes) == 0 {
			return nil
		}
		if _, err := exec(ctx, tx, insertClassesBuilder(tt)); err != nil {
			return errors.Wrap(err, "inserting timetable classes")
		}
		return nil
	})
	if err != nil {
		return timetable.Timetable{}, err
	}
	return tt, nil
}
