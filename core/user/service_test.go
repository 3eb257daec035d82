package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/user"
	inmemdb "github.com/attendly/attendly/storage/database/inmem"
)

var (
	yes = true
	no  = false
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newService() *user.Service {
	conf := &core.Config{}
	conf.Attendance.DefaultRequiredPercentage = 75
	return user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), conf)
}

func createUser(t *testing.T, svc *user.Service, orgID, uname, role string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		OrganizationID: orgID,
		Username:       uname,
		Email:          uname + "@test.io",
		Password:       "s3cretPwd!",
		Role:           role,
	})
	require.NoError(t, err)
	return usr
}

func TestNewUser_Validate(t *testing.T) {
	validate := newValidator()
	svc := newService()
	createUser(t, svc, "org1", "taken", user.RoleStudent)

	pct := 120.0
	tests := []struct {
		name         string
		nu           user.NewUser
		wantErr      bool
		wantConflict bool
	}{
		{name: "valid", nu: user.NewUser{OrganizationID: "org1", Username: " Jane_Doe ", Email: "JANE@test.io", Password: "tr1ckyPass"}},
		{name: "short username", nu: user.NewUser{OrganizationID: "org1", Username: "jd", Email: "jd@test.io", Password: "tr1ckyPass"}, wantErr: true},
		{name: "bad username", nu: user.NewUser{OrganizationID: "org1", Username: "jane doe", Email: "jd@test.io", Password: "tr1ckyPass"}, wantErr: true},
		{name: "bad email", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jane", Password: "tr1ckyPass"}, wantErr: true},
		{name: "bad role", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jd@test.io", Password: "tr1ckyPass", Role: "dean"}, wantErr: true},
		{name: "short password", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jd@test.io", Password: "abc"}, wantErr: true},
		{name: "numeric password", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jd@test.io", Password: "12345678"}, wantErr: true},
		{name: "password like username", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jd@test.io", Password: "janedoe1"}, wantErr: true},
		{name: "bad percentage", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "jd@test.io", Password: "tr1ckyPass", RequiredPercentage: &pct}, wantErr: true},
		{name: "username taken", nu: user.NewUser{OrganizationID: "org1", Username: "Taken", Email: "jd@test.io", Password: "tr1ckyPass"}, wantErr: true, wantConflict: true},
		{name: "email taken", nu: user.NewUser{OrganizationID: "org1", Username: "janedoe", Email: "taken@test.io", Password: "tr1ckyPass"}, wantErr: true, wantConflict: true},
		{name: "taken in another org", nu: user.NewUser{OrganizationID: "org2", Username: "taken", Email: "taken@test.io", Password: "tr1ckyPass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), validate, svc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cerr *core.ConflictError
			assert.Equal(t, tt.wantConflict, errors.As(err, &cerr))
		})
	}
}

func TestService_Create(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	usr := createUser(t, svc, "org1", "jane", "")
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, 75.0, usr.RequiredPercentage)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("s3cretPwd!"))
	assert.Error(t, usr.CheckPassword("wrong"))

	got, err := svc.GetByUsernameOrEmail(ctx, "org1", "JANE@test.io")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = svc.GetByUsername(ctx, "org2", "jane")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = svc.GetInOrganization(ctx, "org2", usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_QueryAndStats(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	createUser(t, svc, "org1", "admin", user.RoleAdmin)
	createUser(t, svc, "org1", "teacher", user.RoleTeacher)
	alice := createUser(t, svc, "org1", "alice", user.RoleStudent)
	createUser(t, svc, "org1", "bob", user.RoleStudent)
	createUser(t, svc, "org2", "carol", user.RoleStudent)

	_, err := svc.UpdateRoleStatus(ctx, user.User{ID: "someone"}, alice, user.UpdateRoleStatus{IsActive: &no})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "org1")
	require.NoError(t, err)
	assert.Equal(t, user.Stats{Total: 4, Active: 3, Admins: 1, Teachers: 1, Students: 2}, stats)

	tests := []struct {
		name      string
		filter    user.QueryFilter
		ordering  []core.DBOrdering
		wantNames []string
		wantTotal int
	}{
		{
			name:      "by role",
			filter:    user.QueryFilter{OrganizationID: "org1", Role: "Student"},
			ordering:  []core.DBOrdering{{Field: "username", Ascending: true}},
			wantNames: []string{"alice", "bob"},
			wantTotal: 2,
		},
		{
			name:      "search",
			filter:    user.QueryFilter{OrganizationID: "org1", Search: "ACH"},
			wantNames: []string{"teacher"},
			wantTotal: 1,
		},
		{
			name:      "active only",
			filter:    user.QueryFilter{OrganizationID: "org1", Role: user.RoleStudent, IsActive: &yes},
			wantNames: []string{"bob"},
			wantTotal: 1,
		},
		{
			name:      "paginated",
			filter:    user.QueryFilter{OrganizationID: "org1", Page: 2, Limit: 3},
			ordering:  []core.DBOrdering{{Field: "username", Ascending: true}},
			wantNames: []string{"teacher"},
			wantTotal: 4,
		},
		{
			name:      "unknown ordering field is ignored",
			filter:    user.QueryFilter{OrganizationID: "org2"},
			ordering:  []core.DBOrdering{{Field: "password_hash"}},
			wantNames: []string{"carol"},
			wantTotal: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Clean()
			users, page, err := svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Username)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}

	recipients, err := svc.QueryReminderRecipients(ctx, "org1")
	require.NoError(t, err)
	assert.Len(t, recipients, 3)
}

func TestService_SelfProtection(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	admin := createUser(t, svc, "org1", "admin", user.RoleAdmin)
	student := createUser(t, svc, "org1", "student", user.RoleStudent)

	_, err := svc.UpdateRoleStatus(ctx, admin, admin, user.UpdateRoleStatus{IsActive: &no})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, user.ErrCannotDeactivateSelf, verr.Err)

	err = svc.Delete(ctx, admin, admin)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, user.ErrCannotDeleteSelf, verr.Err)

	role := user.RoleTeacher
	student, err = svc.UpdateRoleStatus(ctx, admin, student, user.UpdateRoleStatus{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, student.Role)
	assert.True(t, student.IsActive)

	require.NoError(t, svc.Delete(ctx, admin, student))
	_, err = svc.GetByID(ctx, student.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_Updates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user.NowFunc = func() time.Time { return time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC) }
	defer func() { user.NowFunc = time.Now }()

	usr := createUser(t, svc, "org1", "jane", user.RoleStudent)

	usr, err := svc.SetLastLogin(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC), usr.LastLogin)

	for _, pct := range []float64{-1, 100.1} {
		_, err = svc.SetRequiredPercentage(ctx, usr, pct)
		var verr *core.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "percentage", verr.Fields[0].Field)
	}
	usr, err = svc.SetRequiredPercentage(ctx, usr, 82.5)
	require.NoError(t, err)
	assert.Equal(t, 82.5, usr.RequiredPercentage)

	sub := &user.PushSubscription{Endpoint: "https://push.example.com/abc"}
	sub.Keys.P256dh = "key"
	sub.Keys.Auth = "auth"
	usr, err = svc.SetPushSubscription(ctx, usr, sub)
	require.NoError(t, err)
	assert.True(t, usr.HasPushSubscription())
	usr, err = svc.SetPushSubscription(ctx, usr, nil)
	require.NoError(t, err)
	assert.False(t, usr.HasPushSubscription())

	_, err = svc.ResetPassword(ctx, usr, "123")
	assert.Error(t, err)
	usr, err = svc.ResetPassword(ctx, usr, "n3wPassw0rd")
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("n3wPassw0rd"))

	got, err := svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, 82.5, got.RequiredPercentage)
	assert.NoError(t, got.CheckPassword("n3wPassw0rd"))
}
