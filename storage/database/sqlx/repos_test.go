package sqlxrepos

import (
	"database/sql"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
)

func toSQL(t *testing.T, b sq.Sqlizer) (string, []interface{}) {
	t.Helper()
	q, args, err := b.ToSql()
	require.NoError(t, err)
	return q, args
}

func TestTrapNoRowsErr(t *testing.T) {
	assert.Equal(t, user.ErrNotFound, trapNoRowsErr(sql.ErrNoRows, user.ErrNotFound, "getting user"))
	assert.Equal(t, user.ErrNotFound, trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "wrapped"), user.ErrNotFound, "getting user"))

	err := trapNoRowsErr(sql.ErrConnDone, user.ErrNotFound, "getting user")
	assert.EqualError(t, err, "getting user: "+sql.ErrConnDone.Error())
}

func TestTrapUniqueErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email", &pq.Error{Code: uniqueViolation, Constraint: "users_organization_id_email_key"}, user.ErrEmailExists},
		{"username", &pq.Error{Code: uniqueViolation, Constraint: "users_organization_id_username_key"}, user.ErrUsernameExists},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, trapUniqueErr(tc.err, "inserting user"))
		})
	}

	err := trapUniqueErr(&pq.Error{Code: "23503", Message: "fk"}, "inserting user")
	assert.Equal(t, "inserting user: pq: fk", err.Error())

	slugErr := &pq.Error{Code: uniqueViolation, Constraint: "organizations_slug_key"}
	assert.Equal(t, organization.ErrSlugExists, trapSlugErr(slugErr, "inserting organization"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}

func TestUniquenessBuilder(t *testing.T) {
	q, args := toSQL(t, uniquenessBuilder("org", "alice", "alice@example.com", nil))
	assert.Equal(t, "SELECT username, email FROM users WHERE organization_id = $1 AND (username = $2 OR email = $3)", q)
	assert.Equal(t, []interface{}{"org", "alice", "alice@example.com"}, args)

	q, args = toSQL(t, uniquenessBuilder("org", "alice", "alice@example.com", []string{"u1"}))
	assert.Equal(t, "SELECT username, email FROM users WHERE organization_id = $1 AND (username = $2 OR email = $3) AND id NOT IN ($4)", q)
	assert.Equal(t, []interface{}{"org", "alice", "alice@example.com", "u1"}, args)
}

func TestQueryUsersBuilder(t *testing.T) {
	active := true
	tests := []struct {
		name      string
		filter    user.QueryFilter
		ordering  []core.DBOrdering
		wantWhere string
		wantOrder string
		wantArgs  []interface{}
	}{
		{
			name:      "no filter",
			wantWhere: "(1=1)",
			wantOrder: "created_at DESC, username ASC",
		},
		{
			name:      "organization and role",
			filter:    user.QueryFilter{OrganizationID: "org", Role: user.RoleStudent},
			wantWhere: "(organization_id = $1 AND role = $2)",
			wantOrder: "created_at DESC, username ASC",
			wantArgs:  []interface{}{"org", user.RoleStudent},
		},
		{
			name:      "active with search",
			filter:    user.QueryFilter{IsActive: &active, Search: "al_"},
			wantWhere: "(is_active = $1 AND (username ILIKE $2 OR email ILIKE $3 OR first_name ILIKE $4 OR last_name ILIKE $5))",
			wantOrder: "created_at DESC, username ASC",
			wantArgs:  []interface{}{true, `%al\_%`, `%al\_%`, `%al\_%`, `%al\_%`},
		},
		{
			name:      "custom ordering",
			ordering:  []core.DBOrdering{{Field: "email"}},
			wantWhere: "(1=1)",
			wantOrder: "email DESC, username ASC",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, args := toSQL(t, queryUsersBuilder(tc.filter, tc.ordering))
			want := "SELECT " + joinColumns(userColumns) + " FROM users WHERE " + tc.wantWhere + " ORDER BY " + tc.wantOrder
			assert.Equal(t, want, q)
			assert.Equal(t, tc.wantArgs, nilIfEmpty(args))
		})
	}
}

func TestQueryUsersBuilder_pagination(t *testing.T) {
	q, _ := toSQL(t, queryUsersBuilder(user.QueryFilter{Page: 3, Limit: 20}, nil))
	assert.Contains(t, q, "LIMIT 20 OFFSET 40")
}

func TestCountUsersBuilder(t *testing.T) {
	q, args := toSQL(t, countUsersBuilder("org"))
	assert.Contains(t, q, "COUNT(*) FILTER (WHERE role = 'student') AS students")
	assert.Contains(t, q, "FROM users WHERE organization_id = $1")
	assert.Equal(t, []interface{}{"org"}, args)
}

func TestQueryOrgsBuilder(t *testing.T) {
	enabled := true
	q, args := toSQL(t, queryOrgsBuilder(organization.QueryFilter{IsActive: &enabled, RemindersEnabled: &enabled}))
	want := "SELECT " + joinColumns(orgColumns) +
		" FROM organizations WHERE is_active = $1 AND enable_reminders = $2 ORDER BY created_at ASC"
	assert.Equal(t, want, q)
	assert.Equal(t, []interface{}{true, true}, args)
}

func TestInsertEntriesBuilder(t *testing.T) {
	d1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	c := course.Course{ID: "c1", Records: []course.Entry{{Date: d1, Attended: true}, {Date: d2}}}

	q, args := toSQL(t, insertEntriesBuilder(c))
	assert.Equal(t, "INSERT INTO course_entries (course_id,date,attended) VALUES ($1,$2,$3),($4,$5,$6)", q)
	assert.Equal(t, []interface{}{"c1", d1, true, "c1", d2, false}, args)
}

func TestLockCourseBuilder(t *testing.T) {
	q, args := toSQL(t, lockCourseBuilder("u1", "c1"))
	want := "SELECT " + joinColumns(courseColumns) + " FROM courses WHERE id = $1 AND user_id = $2 FOR UPDATE"
	assert.Equal(t, want, q)
	assert.Equal(t, []interface{}{"c1", "u1"}, args)
}

func TestTimetableBuilders(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	tt := timetable.Timetable{
		UserID: "u1",
		Classes: []timetable.Class{
			{ID: "a", Day: "Monday", Subject: "Maths", Time: "09:00"},
			{ID: "b", Day: "Tuesday", Subject: "Physics", Time: "10:30"},
		},
		UpdatedAt: now,
	}

	q, args := toSQL(t, upsertTimetableBuilder(tt))
	assert.Equal(t, "INSERT INTO timetables (user_id,updated_at) VALUES ($1,$2) "+
		"ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at", q)
	assert.Equal(t, []interface{}{"u1", now}, args)

	q, args = toSQL(t, insertClassesBuilder(tt))
	assert.Equal(t, "INSERT INTO timetable_classes (id,user_id,position,day,subject,time) "+
		"VALUES ($1,$2,$3,$4,$5,$6),($7,$8,$9,$10,$11,$12)", q)
	assert.Equal(t, []interface{}{"a", "u1", 0, "Monday", "Maths", "09:00", "b", "u1", 1, "Tuesday", "Physics", "10:30"}, args)
}

func TestUpsertRecordBuilder(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	r := rollcall.Record{OrganizationID: "org", StudentID: "s1", Date: day, Status: rollcall.StatusPresent, MarkedBy: "t1"}

	q, args := toSQL(t, upsertRecordBuilder(r))
	assert.Contains(t, q, "INSERT INTO attendance_records (id,organization_id,student_id,date,status,marked_by,marked_at,notes,created_at,updated_at)")
	assert.Contains(t, q, "ON CONFLICT (student_id, date) DO UPDATE SET")
	assert.NotContains(t, q, "created_at = EXCLUDED.created_at")
	assert.Contains(t, q, "RETURNING "+joinColumns(recordColumns))
	require.Len(t, args, len(recordColumns))
	assert.NotEmpty(t, args[0])
	assert.Equal(t, "s1", args[2])
	assert.Equal(t, day, args[3])
}

func TestQueryRecordsBuilder(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		filter    rollcall.QueryFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{"organization", rollcall.QueryFilter{OrganizationID: "org"}, " WHERE organization_id = $1", []interface{}{"org"}},
		{
			"student in range",
			rollcall.QueryFilter{StudentID: "s1", From: from, To: to},
			" WHERE student_id = $1 AND date >= $2 AND date <= $3",
			[]interface{}{"s1", from, to},
		},
		{"open start", rollcall.QueryFilter{To: to}, " WHERE date <= $1", []interface{}{to}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, args := toSQL(t, queryRecordsBuilder(tc.filter))
			want := "SELECT " + joinColumns(recordColumns) + " FROM attendance_records" + tc.wantWhere +
				" ORDER BY date DESC, student_id ASC"
			assert.Equal(t, want, q)
			assert.Equal(t, tc.wantArgs, args)
		})
	}
}

func nilIfEmpty(args []interface{}) []interface{} {
	if len(args) == 0 {
		return nil
	}
	return args
}
