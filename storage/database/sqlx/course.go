package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/course"
)

var courseColumns = []string{
	"id", "user_id", "name", "code", "instructor", "total_classes", "attended_classes", "created_at", "updated_at",
}

type courseRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Name            string    `db:"name"`
	Code            string    `db:"code"`
	Instructor      string    `db:"instructor"`
	TotalClasses    int       `db:"total_classes"`
	AttendedClasses int       `db:"attended_classes"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type entryRow struct {
	CourseID string    `db:"course_id"`
	Date     time.Time `db:"date"`
	Attended bool      `db:"attended"`
}

func (r courseRow) course(entries []course.Entry) course.Course {
	if entries == nil {
		entries = []course.Entry{}
	}
	return course.Course{
		ID:              r.ID,
		UserID:          r.UserID,
		Name:            r.Name,
		Code:            r.Code,
		Instructor:      r.Instructor,
		TotalClasses:    r.TotalClasses,
		AttendedClasses: r.AttendedClasses,
		Records:         entries,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func insertEntriesBuilder(c course.Course) sq.InsertBuilder {
	b := psql.Insert("course_entries").Columns("course_id", "date", "attended")
	for _, e := range c.Records {
		b = b.Values(c.ID, e.Date.UTC(), e.Attended)
	}
	return b
}

func saveEntries(ctx context.Context, tx *sqlx.Tx, c course.Course) error {
	if _, err := exec(ctx, tx, psql.Delete("course_entries").Where(sq.Eq{"course_id": c.ID})); err != nil {
		return errors.Wrap(err, "deleting course entries")
	}
	if len(c.Records) == 0 {
		return nil
	}
	if _, err := exec(ctx, tx, insertEntriesBuilder(c)); err != nil {
		return errors.Wrap(err, "inserting course entries")
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = newID()
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		b := psql.Insert("courses").Columns(courseColumns...).Values(
			c.ID, c.UserID, c.Name, c.Code, c.Instructor, c.TotalClasses, c.AttendedClasses, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
		)
		if _, err := exec(ctx, tx, b); err != nil {
			return errors.Wrap(err, "inserting course")
		}
		return saveEntries(ctx, tx, c)
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

// queryEntries loads the attendance entries of the given courses, per course, oldest first.
func queryEntries(ctx context.Context, db sqlx.QueryerContext, ids ...string) (map[string][]course.Entry, error) {
	var rows []entryRow
	b := psql.Select("course_id", "date", "attended").From("course_entries").
		Where(sq.Eq{"course_id": ids}).
		OrderBy("date ASC")
	if err := selectAll(ctx, db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying course entries")
	}
	entries := make(map[string][]course.Entry, len(ids))
	for _, r := range rows {
		entries[r.CourseID] = append(entries[r.CourseID], course.Entry{Date: r.Date.UTC(), Attended: r.Attended})
	}
	return entries, nil
}

// lockCourseBuilder selects a course of a user, locking its row until the end of the transaction.
func lockCourseBuilder(userID, id string) sq.SelectBuilder {
	return psql.Select(courseColumns...).From("courses").
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("FOR UPDATE")
}

func (repo *courseRepository) GetCourse(ctx context.Context, userID, id string) (course.Course, error) {
	var row courseRow
	b := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id, "user_id": userID})
	if err := get(ctx, repo.db, &row, b); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	entries, err := queryEntries(ctx, repo.db, row.ID)
	if err != nil {
		return course.Course{}, err
	}
	return row.course(entries[row.ID]), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, userID string) ([]course.Course, error) {
	var rows []courseRow
	b := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"user_id": userID}).OrderBy("created_at ASC", "id ASC")
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	if len(rows) == 0 {
		return courses, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	entries, err := queryEntries(ctx, repo.db, ids...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		courses = append(courses, r.course(entries[r.ID]))
	}
	return courses, nil
}

func updateCourse(ctx context.Context, tx *sqlx.Tx, c course.Course) error {
	b := psql.Update("courses").SetMap(map[string]interface{}{
		"name":             c.Name,
		"code":             c.Code,
		"instructor":       c.Instructor,
		"total_classes":    c.TotalClasses,
		"attended_classes": c.AttendedClasses,
		"updated_at":       c.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": c.ID})

	res, err := exec(ctx, tx, b)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return saveEntries(ctx, tx, c)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return updateCourse(ctx, tx, c)
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) ModifyCourse(ctx context.Context, userID, id string, fn func(*course.Course) error) (course.Course, error) {
	var c course.Course
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var row courseRow
		if err := get(ctx, tx, &row, lockCourseBuilder(userID, id)); err != nil {
			return trapNoRowsErr(err, course.ErrNotFound, "locking course")
		}
		entries, err := queryEntries(ctx, tx, row.ID)
		if err != nil {
			return err
		}
		c = row.course(entries[row.ID])
		if err := fn(&c); err != nil {
			return err
		}
		c.ID, c.UserID = row.ID, row.UserID
		return updateCourse(ctx, tx, c)
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := exec(ctx, repo.db, psql.Delete("courses").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}
