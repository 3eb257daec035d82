// Package reminder sends the daily "update your attendance" reminders.
package reminder

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/attendance"
	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

const (
	Title       = "Attendance reminder"
	baseMessage = "Reminder: Update your attendance records for today!"
)

// ErrSubscriptionExpired is returned by a Notifier when the user's push subscription is gone for good.
var ErrSubscriptionExpired = errors.New("push subscription expired")

type (
	LowCourse struct {
		Name       string
		Percentage float64
		Needed     string
	}

	Notification struct {
		User       user.User
		Title      string
		Message    string
		Target     float64 // required percentage of User
		LowCourses []LowCourse
	}

	// Notifier delivers notifications over one channel.
	Notifier interface {
		// Accepts reports whether usr can be reached over this channel.
		Accepts(usr user.User) bool
		Notify(ctx context.Context, n Notification) error
	}

	Organizations interface {
		QueryReminderEnabled(ctx context.Context) ([]organization.Organization, error)
	}

	Users interface {
		QueryReminderRecipients(ctx context.Context, orgID string) ([]user.User, error)
		SetPushSubscription(ctx context.Context, usr user.User, sub *user.PushSubscription) (user.User, error)
	}

	Courses interface {
		Query(ctx context.Context, userID string) ([]course.Course, error)
	}

	Service struct {
		orgs      Organizations
		users     Users
		courses   Courses
		notifiers []Notifier
		logger    core.Logger
	}
)

func NewService(orgs Organizations, users Users, courses Courses, logger core.Logger, notifiers ...Notifier) *Service {
	return &Service{orgs: orgs, users: users, courses: courses, notifiers: notifiers, logger: logger}
}

// Run notifies every active user, of every organization with reminders enabled, that tracks at least one course.
// It returns the number of users reached by at least one notifier.
func (svc *Service) Run(ctx context.Context) (int, error) {
	orgs, err := svc.orgs.QueryReminderEnabled(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying organizations")
	}

	sent, total := 0, 0
	for _, org := range orgs {
		users, err := svc.users.QueryReminderRecipients(ctx, org.ID)
		if err != nil {
			return sent, errors.Wrapf(err, "querying users of %s", org.Slug)
		}
		for _, usr := range users {
			if err := ctx.Err(); err != nil {
				return sent, err
			}
			n, ok, err := svc.notification(ctx, usr)
			if err != nil {
				return sent, err
			}
			if !ok {
				continue
			}
			total++
			if svc.notify(ctx, n) {
				sent++
			}
		}
	}
	svc.logger.Info(fmt.Sprintf("sent attendance reminders to %d/%d users", sent, total))
	return sent, nil
}

func (svc *Service) notification(ctx context.Context, usr user.User) (Notification, bool, error) {
	courses, err := svc.courses.Query(ctx, usr.ID)
	if err != nil {
		return Notification{}, false, errors.Wrapf(err, "querying courses of %s", usr.ID)
	}
	if len(courses) == 0 {
		return Notification{}, false, nil
	}

	n := Notification{User: usr, Title: Title, Message: baseMessage, Target: usr.RequiredPercentage}
	for _, c := range courses {
		if c.TotalClasses == 0 {
			continue
		}
		st, err := attendance.Evaluate(c.Tally(usr.RequiredPercentage))
		if err != nil {
			svc.logger.Warn("skipping course with invalid counters", err, map[string]interface{}{"course": c.ID})
			continue
		}
		if !st.MeetsTarget {
			n.LowCourses = append(n.LowCourses, LowCourse{Name: c.Name, Percentage: st.Percentage, Needed: st.Needed.String()})
		}
	}
	if len(n.LowCourses) > 0 {
		n.Message += fmt.Sprintf(
			" Warning: Your attendance is below %s%% in %d course(s).",
			attendance.FormatPercentage(usr.RequiredPercentage), len(n.LowCourses),
		)
	}
	return n, true, nil
}

func (svc *Service) notify(ctx context.Context, n Notification) bool {
	ok := false
	for _, nt := range svc.notifiers {
		if !nt.Accepts(n.User) {
			continue
		}
		err := nt.Notify(ctx, n)
		switch {
		case err == nil:
			ok = true
		case errors.Cause(err) == ErrSubscriptionExpired:
			if _, err := svc.users.SetPushSubscription(ctx, n.User, nil); err != nil {
				svc.logger.Error("failed to clear push subscription", err, n.User)
			}
		default:
			svc.logger.Error("failed to send attendance reminder", err, n.User)
		}
	}
	return ok
}
