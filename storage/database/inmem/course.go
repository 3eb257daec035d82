package inmemdb

import (
	"context"
	"sort"

	"github.com/attendly/attendly/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func copyCourse(c course.Course) course.Course {
	records := make([]course.Entry, len(c.Records))
	copy(records, c.Records)
	c.Records = records
	return c
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c = copyCourse(c)
	c.ID = newID()
	repo.db.courses[c.ID] = &c
	return copyCourse(c), nil
}

func (repo *courseRepository) GetCourse(_ context.Context, userID, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok && c.UserID == userID {
		return copyCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, userID string) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if c.UserID == userID {
			courses = append(courses, copyCourse(*c))
		}
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].CreatedAt.Before(courses[j].CreatedAt)
	})
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	c = copyCourse(c)
	repo.db.courses[c.ID] = &c
	return copyCourse(c), nil
}

func (repo *courseRepository) ModifyCourse(_ context.Context, userID, id string, fn func(*course.Course) error) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cur, ok := repo.db.courses[id]
	if !ok || cur.UserID != userID {
		return course.Course{}, course.ErrNotFound
	}
	c := copyCourse(*cur)
	if err := fn(&c); err != nil {
		return course.Course{}, err
	}
	c.ID, c.UserID = cur.ID, cur.UserID
	c = copyCourse(c)
	repo.db.courses[id] = &c
	return copyCourse(c), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	return nil
}
