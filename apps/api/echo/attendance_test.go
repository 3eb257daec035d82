package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/user"
)

func Test_attendanceApi(t *testing.T) {
	db.Reset()
	org := createOrg(t, "Test College")
	teacher := createUser(t, org, "teacher", user.RoleTeacher, true)
	alice := createUser(t, org, "alice", user.RoleStudent, true)
	bob := createUser(t, org, "bob", user.RoleStudent, true)

	other := createOrg(t, "Other College")
	outsider := createUser(t, other, "outsider", user.RoleStudent, true)

	teacherToken := getToken(t, teacher)
	aliceToken := getToken(t, alice)

	markBody := marshallObj(t, rollcall.MarkRequest{
		Date: "2024-03-04",
		Items: []rollcall.MarkItem{
			{StudentID: bob.ID, Status: "Absent", Notes: " sick "},
			{StudentID: alice.ID, Status: "present"},
			{StudentID: outsider.ID, Status: "present"},
			{StudentID: teacher.ID, Status: "present"},
			{StudentID: alice.ID, Status: "late"},
		},
	})

	runTests(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/api/attendance/mark", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "Teacher required", method: http.MethodPost, path: "/api/attendance/mark", token: aliceToken, body: markBody,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "Attendance data required", method: http.MethodPost, path: "/api/attendance/mark", token: teacherToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"attendance_data": "this field is required"}),
		},
		{
			name: "Invalid date", method: http.MethodPost, path: "/api/attendance/mark", token: teacherToken,
			body:     []byte(`{"attendance_data": [], "date": "04/03/2024"}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"date": "invalid date, expected YYYY-MM-DD"}),
		},
	})

	t.Run("Marked", func(t *testing.T) {
		rec := serve(t, httpTest{method: http.MethodPost, path: "/api/attendance/mark", token: teacherToken, body: markBody, wantCode: http.StatusOK})

		var res rollcall.MarkResult
		unmarshall(t, rec, &res)
		assert.Equal(t, "Attendance marked successfully", res.Message)
		assert.Equal(t, 2, res.Marked)
		require.Len(t, res.Errors, 3)
		assert.Equal(t, outsider.ID, res.Errors[0].StudentID)
		assert.Equal(t, teacher.ID, res.Errors[1].StudentID)
		assert.Equal(t, alice.ID, res.Errors[2].StudentID)
		require.Len(t, res.Records, 2)
		assert.Equal(t, rollcall.StatusAbsent, res.Records[0].Status)
		assert.Equal(t, "sick", res.Records[0].Notes)
		assert.Equal(t, teacher.ID, res.Records[0].MarkedBy)
	})

	t.Run("By date", func(t *testing.T) {
		runTests(t, []httpTest{
			{
				name: "Teacher required", path: "/api/attendance/date/2024-03-04", token: aliceToken,
				wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
			},
			{
				name: "Invalid date", path: "/api/attendance/date/yesterday", token: teacherToken,
				wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"date": "invalid date, expected YYYY-MM-DD"}),
			},
		})

		rec := serve(t, httpTest{method: http.MethodGet, path: "/api/attendance/date/2024-03-04", token: teacherToken, wantCode: http.StatusOK})
		var res rollcall.DateAttendance
		unmarshall(t, rec, &res)
		assert.Equal(t, 2, res.TotalRecords)
		require.Len(t, res.Records, 2)
		assert.Equal(t, "alice", res.Records[0].Student.Username)
		assert.Equal(t, "bob", res.Records[1].Student.Username)
		assert.Equal(t, "teacher", res.Records[0].Marker.Username)
		assert.Empty(t, res.Records[0].Marker.Email)

		rec = serve(t, httpTest{method: http.MethodGet, path: "/api/attendance/date/2024-03-05", token: teacherToken, wantCode: http.StatusOK})
		unmarshall(t, rec, &res)
		assert.Zero(t, res.TotalRecords)
	})

	t.Run("Student attendance", func(t *testing.T) {
		runTests(t, []httpTest{
			{
				name: "Students see only their own", path: "/api/attendance/student/" + bob.ID, token: aliceToken,
				wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "students can only view their own attendance"}),
			},
			{
				name: "Unknown student", path: "/api/attendance/student/" + outsider.ID, token: teacherToken,
				wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "student not found"}),
			},
			{
				name: "Invalid range", path: "/api/attendance/student/" + alice.ID + "?start_date=2024-03-05&end_date=2024-03-01", token: aliceToken,
				wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"end_date": "end date cannot be before start date"}),
			},
		})

		rec := serve(t, httpTest{method: http.MethodGet, path: "/api/attendance/student/" + alice.ID, token: aliceToken, wantCode: http.StatusOK})
		var res rollcall.StudentAttendance
		unmarshall(t, rec, &res)
		assert.Equal(t, alice.ID, res.Student.ID)
		assert.Empty(t, res.Student.Email)
		require.Len(t, res.Records, 1)
		assert.Equal(t, 1, res.Statistics.TotalDays)
		assert.Equal(t, 1, res.Statistics.Present)
		assert.Equal(t, float64(100), res.Statistics.Percentage)

		rec = serve(t, httpTest{
			method: http.MethodGet, path: "/api/attendance/student/" + bob.ID + "?start_date=2024-03-05", token: teacherToken, wantCode: http.StatusOK,
		})
		unmarshall(t, rec, &res)
		assert.Empty(t, res.Records)
		assert.Zero(t, res.Statistics.TotalDays)
	})

	t.Run("Report", func(t *testing.T) {
		serve(t, httpTest{
			method: http.MethodGet, path: "/api/attendance/report", token: aliceToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		})

		rec := serve(t, httpTest{method: http.MethodGet, path: "/api/attendance/report", token: teacherToken, wantCode: http.StatusOK})
		var res struct {
			DateRange     string               `json:"date_range"`
			TotalStudents int                  `json:"total_students"`
			Report        []rollcall.ReportRow `json:"report"`
		}
		unmarshall(t, rec, &res)
		assert.Equal(t, "All time", res.DateRange)
		assert.Equal(t, 2, res.TotalStudents)
		require.Len(t, res.Report, 2)
		assert.Equal(t, alice.ID, res.Report[0].Student.ID)
		assert.Equal(t, float64(100), res.Report[0].Percentage)
		assert.Equal(t, bob.ID, res.Report[1].Student.ID)
		assert.Equal(t, 1, res.Report[1].Absent)

		rec = serve(t, httpTest{
			method: http.MethodGet, path: "/api/attendance/report?start_date=2024-03-01&end_date=2024-03-03", token: teacherToken, wantCode: http.StatusOK,
		})
		var ranged struct {
			DateRange     map[string]string `json:"date_range"`
			TotalStudents int               `json:"total_students"`
		}
		unmarshall(t, rec, &ranged)
		assert.Equal(t, map[string]string{"start_date": "2024-03-01", "end_date": "2024-03-03"}, ranged.DateRange)
		assert.Zero(t, ranged.TotalStudents)
	})
}
