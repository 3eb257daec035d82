package course

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/attendance"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("course not found")

	errInvalidDate          = "invalid date, expected YYYY-MM-DD"
	errAttendedExceedsTotal = "attended classes cannot exceed total classes"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse finds the Course of a user; ErrNotFound when it belongs to someone else.
		GetCourse(ctx context.Context, userID, id string) (Course, error)
		// QueryCourses returns the courses of a user, oldest first.
		QueryCourses(ctx context.Context, userID string) ([]Course, error)
		// UpdateCourse saves every field of c, attendance records included.
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		// ModifyCourse applies fn to the stored course of a user and saves the result,
		// with no other write to that course in between. ErrNotFound when it belongs to someone else.
		ModifyCourse(ctx context.Context, userID, id string, fn func(c *Course) error) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, userID string) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, userID)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, userID, id)
}

func (svc *Service) Create(ctx context.Context, userID string, nc NewCourse) (Course, error) {
	now := NowFunc().UTC()
	c := Course{
		UserID:     userID,
		Name:       nc.Name,
		Code:       nc.Code,
		Instructor: nc.Instructor,
		Records:    []Entry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Code != nil {
		c.Code = *uc.Code
	}
	if uc.Instructor != nil {
		c.Instructor = *uc.Instructor
	}
	if uc.TotalClasses != nil {
		c.TotalClasses = *uc.TotalClasses
	}
	if uc.AttendedClasses != nil {
		c.AttendedClasses = *uc.AttendedClasses
	}
	if c.AttendedClasses > c.TotalClasses {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "attended_classes", Error: errAttendedExceedsTotal})
	}
	return svc.update(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, c Course) error {
	return svc.repo.DeleteCourse(ctx, c.ID)
}

// MarkAttendance upserts the attendance entry of a calendar day, today in loc unless ma.Date is set.
// A new day counts one more class; re-marking a day only moves the attended counter.
// The entry goes to the stored state of the course, not to c.
func (svc *Service) MarkAttendance(ctx context.Context, c Course, ma MarkAttendance, loc *time.Location) (Course, error) {
	day := core.Today(NowFunc(), loc)
	if ma.Date != "" {
		d, err := core.ParseDate(ma.Date)
		if err != nil {
			return Course{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errInvalidDate})
		}
		day = d
	}
	attended := ma.Attended != nil && *ma.Attended

	return svc.repo.ModifyCourse(ctx, c.UserID, c.ID, func(cur *Course) error {
		cur.mark(day, attended)
		cur.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

func (c *Course) mark(day time.Time, attended bool) {
	records := make([]Entry, len(c.Records), len(c.Records)+1)
	copy(records, c.Records)

	found := false
	for i, e := range records {
		if !e.Date.Equal(day) {
			continue
		}
		found = true
		if e.Attended != attended {
			records[i].Attended = attended
			if attended {
				c.AttendedClasses++
			} else {
				c.AttendedClasses--
			}
		}
		break
	}
	if !found {
		records = append(records, Entry{Date: day, Attended: attended})
		sort.SliceStable(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
		c.TotalClasses++
		if attended {
			c.AttendedClasses++
		}
	}

	// counters may have been adjusted by hand
	if c.AttendedClasses < 0 {
		c.AttendedClasses = 0
	}
	if c.AttendedClasses > c.TotalClasses {
		c.AttendedClasses = c.TotalClasses
	}
	c.Records = records
}

// Adjust sets the attended/total counters of c.
func (svc *Service) Adjust(ctx context.Context, c Course, aa AdjustAttendance) (Course, error) {
	c.TotalClasses = *aa.TotalClasses
	c.AttendedClasses = *aa.AttendedClasses
	return svc.update(ctx, c)
}

func (svc *Service) Standing(c Course, target float64) (CourseStanding, error) {
	st, err := attendance.Evaluate(c.Tally(target))
	if err != nil {
		return CourseStanding{}, err
	}
	return CourseStanding{
		CourseID: c.ID,
		Name:     c.Name,
		Code:     c.Code,
		Standing: st,
		Message:  st.Message(),
	}, nil
}

// Threshold tells how many classes c needs (or can spare) against target.
func (svc *Service) Threshold(c Course, target float64) (ThresholdResult, error) {
	st, err := attendance.Evaluate(c.Tally(target))
	if err != nil {
		return ThresholdResult{}, err
	}
	return ThresholdResult{Message: st.Message(), CurrentPercentage: st.Percentage}, nil
}

// OverallStanding combines the counters of every course of a user.
func (svc *Service) OverallStanding(ctx context.Context, userID string, target float64) (Overall, error) {
	courses, err := svc.repo.QueryCourses(ctx, userID)
	if err != nil {
		return Overall{}, errors.Wrap(err, "querying courses")
	}

	total := attendance.Tally{Target: target}
	standings := make([]CourseStanding, 0, len(courses))
	for _, c := range courses {
		cs, err := svc.Standing(c, target)
		if err != nil {
			return Overall{}, errors.Wrapf(err, "evaluating course %s", c.ID)
		}
		standings = append(standings, cs)
		total.Attended += c.AttendedClasses
		total.Total += c.TotalClasses
	}

	st, err := attendance.Evaluate(total)
	if err != nil {
		return Overall{}, err
	}
	return Overall{Standing: st, Message: st.Message(), Courses: standings}, nil
}

func (svc *Service) update(ctx context.Context, c Course) (Course, error) {
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}
