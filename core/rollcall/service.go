package rollcall

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/attendance"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrStudentNotFound = errors.New("student not found")

	errInvalidDate      = "invalid date, expected YYYY-MM-DD"
	errItemNotStudent   = "student not found in organization"
	errItemInvalidState = "invalid attendance status (must be present or absent)"
)

type (
	Repository interface {
		// UpsertRecord creates or replaces the record of (r.StudentID, r.Date).
		UpsertRecord(ctx context.Context, r Record) (Record, error)
		// QueryRecords returns the matching records, most recent date first.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	// Users looks up the members of an organization.
	Users interface {
		GetInOrganization(ctx context.Context, orgID, id string) (user.User, error)
	}

	Service struct {
		repo  Repository
		users Users
	}
)

func NewService(repo Repository, users Users) *Service {
	return &Service{repo: repo, users: users}
}

// Mark saves the attendance of each item of req on behalf of actor, a member of org.
// Without req.Date the records go to today in the timezone of org.
// Invalid items are reported in MarkResult.Errors without preventing the others from being saved.
func (svc *Service) Mark(ctx context.Context, org organization.Organization, actor user.User, req MarkRequest) (MarkResult, error) {
	now := NowFunc().UTC()
	day := core.Today(now, org.Location())
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			return MarkResult{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errInvalidDate})
		}
		day = d
	}

	res := MarkResult{Message: "Attendance marked successfully", Records: []Record{}}
	for _, item := range req.Items {
		status := core.CleanString(item.Status, true /* lower */)
		student, err := svc.users.GetInOrganization(ctx, actor.OrganizationID, item.StudentID)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return MarkResult{}, errors.Wrapf(err, "getting student %s", item.StudentID)
			}
			res.Errors = append(res.Errors, ItemError{StudentID: item.StudentID, Error: errItemNotStudent})
			continue
		}
		if !student.IsStudent() {
			res.Errors = append(res.Errors, ItemError{StudentID: item.StudentID, Error: errItemNotStudent})
			continue
		}
		if status != StatusPresent && status != StatusAbsent {
			res.Errors = append(res.Errors, ItemError{StudentID: item.StudentID, Error: errItemInvalidState})
			continue
		}

		r, err := svc.repo.UpsertRecord(ctx, Record{
			OrganizationID: actor.OrganizationID,
			StudentID:      student.ID,
			Date:           day,
			Status:         status,
			MarkedBy:       actor.ID,
			MarkedAt:       now,
			Notes:          core.CleanString(item.Notes),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			res.Errors = append(res.Errors, ItemError{StudentID: item.StudentID, Error: err.Error()})
			continue
		}
		res.Records = append(res.Records, r)
	}
	res.Marked = len(res.Records)
	return res, nil
}

// ByDate returns the records of an organization for a calendar day, sorted by student username.
func (svc *Service) ByDate(ctx context.Context, orgID string, date time.Time) (DateAttendance, error) {
	day := core.TruncateDay(date)
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{OrganizationID: orgID, From: day, To: day})
	if err != nil {
		return DateAttendance{}, errors.Wrap(err, "querying records")
	}

	people := make(map[string]Person)
	out := make([]DateRecord, 0, len(records))
	for _, r := range records {
		student, err := svc.person(ctx, people, orgID, r.StudentID)
		if err != nil {
			return DateAttendance{}, err
		}
		marker, err := svc.person(ctx, people, orgID, r.MarkedBy)
		if err != nil {
			return DateAttendance{}, err
		}
		marker.Email = ""
		out = append(out, DateRecord{Record: r, Student: student, Marker: marker})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Student.Username) < strings.ToLower(out[j].Student.Username)
	})
	return DateAttendance{Date: day, TotalRecords: len(out), Records: out}, nil
}

// StudentAttendance returns the records and statistics of a student within dr,
// evaluated against the organization's minimum attendance.
func (svc *Service) StudentAttendance(ctx context.Context, org organization.Organization, studentID string, dr DateRange) (StudentAttendance, error) {
	student, err := svc.users.GetInOrganization(ctx, org.ID, studentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return StudentAttendance{}, ErrStudentNotFound
		}
		return StudentAttendance{}, errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return StudentAttendance{}, ErrStudentNotFound
	}

	records, err := svc.repo.QueryRecords(ctx, QueryFilter{
		OrganizationID: org.ID,
		StudentID:      student.ID,
		From:           dr.from,
		To:             dr.to,
	})
	if err != nil {
		return StudentAttendance{}, errors.Wrap(err, "querying records")
	}

	stats := Statistics{TotalDays: len(records)}
	for _, r := range records {
		if r.Status == StatusPresent {
			stats.Present++
		} else {
			stats.Absent++
		}
	}
	st, err := attendance.Evaluate(attendance.Tally{
		Attended: stats.Present,
		Total:    stats.TotalDays,
		Target:   org.Settings.MinimumAttendance,
	})
	if err != nil {
		return StudentAttendance{}, errors.Wrap(err, "evaluating attendance")
	}
	stats.Percentage = st.Percentage
	stats.Standing = st
	stats.Message = st.Message()

	if records == nil {
		records = []Record{}
	}
	p := NewPerson(student)
	p.Email = ""
	return StudentAttendance{Student: p, Records: records, Statistics: stats}, nil
}

// Report aggregates the records of an organization per student, best attendance first.
func (svc *Service) Report(ctx context.Context, orgID string, dr DateRange) (Report, error) {
	records, err := svc.repo.QueryRecords(ctx, QueryFilter{OrganizationID: orgID, From: dr.from, To: dr.to})
	if err != nil {
		return Report{}, errors.Wrap(err, "querying records")
	}

	rows := make(map[string]*ReportRow)
	order := make([]string, 0)
	for _, r := range records {
		row, ok := rows[r.StudentID]
		if !ok {
			row = &ReportRow{Student: Person{ID: r.StudentID}}
			rows[r.StudentID] = row
			order = append(order, r.StudentID)
		}
		row.TotalDays++
		if r.Status == StatusPresent {
			row.Present++
		} else {
			row.Absent++
		}
	}

	people := make(map[string]Person)
	report := make([]ReportRow, 0, len(order))
	for _, id := range order {
		row := rows[id]
		p, err := svc.person(ctx, people, orgID, id)
		if err != nil {
			return Report{}, err
		}
		row.Student = p
		row.Percentage = attendance.Round(attendance.CurrentPercentage(attendance.Tally{Attended: row.Present, Total: row.TotalDays}), 1)
		report = append(report, *row)
	}
	sort.SliceStable(report, func(i, j int) bool { return report[i].Percentage > report[j].Percentage })

	var rng interface{} = "All time"
	if !dr.IsZero() {
		rng = map[string]string{"start_date": dr.StartDate, "end_date": dr.EndDate}
	}
	return Report{DateRange: rng, TotalStudents: len(report), Report: report}, nil
}

// person returns the public view of a member, caching lookups in people.
// Members deleted since the record was saved only keep their ID.
func (svc *Service) person(ctx context.Context, people map[string]Person, orgID, id string) (Person, error) {
	if p, ok := people[id]; ok {
		return p, nil
	}
	p := Person{ID: id}
	usr, err := svc.users.GetInOrganization(ctx, orgID, id)
	switch {
	case err == nil:
		p = NewPerson(usr)
	case errors.Cause(err) != user.ErrNotFound:
		return Person{}, errors.Wrapf(err, "getting user %s", id)
	}
	people[id] = p
	return p, nil
}
