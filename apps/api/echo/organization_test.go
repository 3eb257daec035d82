package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/attendly/attendly/apps/api/echo"
	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/user"
)

func Test_organizationApi_organization(t *testing.T) {
	db.Reset()
	org := createOrg(t, "Test College")
	admin := createUser(t, org, "admin", user.RoleAdmin, true)
	student := createUser(t, org, "student", user.RoleStudent, true)

	runTests(t, []httpTest{
		{name: "Auth required", path: "/api/organization", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "Any member can view", path: "/api/organization", token: getToken(t, student), wantData: marshallObj(t, org)},
		{
			name: "Admin required to update", method: http.MethodPut, path: "/api/organization", token: getToken(t, student),
			body: []byte(`{"name": "Hacked"}`), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "Invalid time zone", method: http.MethodPut, path: "/api/organization", token: getToken(t, admin),
			body:     []byte(`{"settings": {"timezone": "Mars/Olympus"}}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"timezone": "unknown time zone"}),
		},
	})

	t.Run("Updated", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPut, path: "/api/organization", token: getToken(t, admin),
			body: []byte(`{"contact_phone": " +243 999 ", "settings": {"minimum_attendance": 80, "timezone": "Africa/Kinshasa"}}`),
		}
		req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got organization.Organization
		unmarshall(t, rec, &got)
		assert.Equal(t, org.Name, got.Name)
		assert.Equal(t, "+243 999", got.ContactPhone)
		assert.Equal(t, float64(80), got.Settings.MinimumAttendance)
		assert.Equal(t, "Africa/Kinshasa", got.Settings.Timezone)
		assert.Equal(t, org.Settings.EnableReminders, got.Settings.EnableReminders)
	})
}

func Test_organizationApi_users(t *testing.T) {
	db.Reset()
	org := createOrg(t, "Test College")
	admin := createUser(t, org, "admin", user.RoleAdmin, true)
	teacher := createUser(t, org, "teacher", user.RoleTeacher, true)
	student := createUser(t, org, "student", user.RoleStudent, true)
	naughty := createUser(t, org, "naughty", user.RoleStudent, false)

	other := createOrg(t, "Other College")
	outsider := createUser(t, other, "outsider", user.RoleStudent, true)

	adminToken := getToken(t, admin)
	path := func(query url.Values) string {
		return "/api/organization/users?" + query.Encode()
	}
	list := func(page, limit, total int, users ...user.User) []byte {
		if users == nil {
			users = []user.User{}
		}
		pages := 0
		if limit > 0 {
			pages = (total + limit - 1) / limit
		}
		return marshallObj(t, UserListResponse{
			Users:      users,
			Pagination: core.Pagination{Total: total, Page: page, Limit: limit, Pages: pages},
		})
	}

	runTests(t, []httpTest{
		{name: "Admin required", path: "/api/organization/users", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "Ordered by username", path: path(url.Values{"ordering": {"username"}}), token: adminToken,
			wantData: list(1, 50, 4, admin, naughty, student, teacher),
		},
		{
			name: "role=student", path: path(url.Values{"role": {"student"}, "ordering": {"-username"}}), token: adminToken,
			wantData: list(1, 50, 2, student, naughty),
		},
		{
			name: "is_active=false", path: path(url.Values{"is_active": {"false"}}), token: adminToken,
			wantData: list(1, 50, 1, naughty),
		},
		{
			name: "search", path: path(url.Values{"search": {"TEACH"}}), token: adminToken,
			wantData: list(1, 50, 1, teacher),
		},
		{
			name: "paginated", path: path(url.Values{"ordering": {"username"}, "page": {"2"}, "limit": {"3"}}), token: adminToken,
			wantData: list(2, 3, 4, teacher),
		},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), token: adminToken, wantData: list(1, 50, 0)},
	})

	runTests(t, []httpTest{
		{name: "Get user", path: "/api/organization/users/" + student.ID, token: adminToken, wantData: marshallObj(t, student)},
		{
			name: "Get user of another organization", path: "/api/organization/users/" + outsider.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "Cannot deactivate self", method: http.MethodPatch, path: "/api/organization/users/" + admin.ID, token: adminToken,
			body: []byte(`{"is_active": false}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: user.ErrCannotDeactivateSelf.Error()}),
		},
		{
			name: "Invalid role", method: http.MethodPatch, path: "/api/organization/users/" + student.ID, token: adminToken,
			body: []byte(`{"role": "janitor"}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "Promote and deactivate", method: http.MethodPatch, path: "/api/organization/users/" + student.ID, token: adminToken,
			body: []byte(`{"role": "Teacher", "is_active": false}`),
			wantData: marshallObj(t, UpdateUserResponse{
				Message: "User updated successfully",
				User:    MemberStatus{ID: student.ID, Username: student.Username, Role: user.RoleTeacher, IsActive: false},
			}),
		},
		{
			name: "Stats", path: "/api/organization/stats", token: adminToken,
			wantData: marshallObj(t, map[string]user.Stats{"users": {Total: 4, Active: 2, Admins: 1, Teachers: 2, Students: 1}}),
		},
		{
			name: "Cannot delete self", method: http.MethodDelete, path: "/api/organization/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: user.ErrCannotDeleteSelf.Error()}),
		},
		{
			name: "Delete user", method: http.MethodDelete, path: "/api/organization/users/" + naughty.ID, token: adminToken,
			wantData: marshallObj(t, MessageResponse{Message: "User deleted successfully"}),
		},
		{
			name: "Deleted user is gone", path: "/api/organization/users/" + naughty.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "user not found"}),
		},
	})

	_, err := usrSvc.GetByID(context.Background(), outsider.ID)
	assert.NoError(t, err)
}
