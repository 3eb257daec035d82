// Package testutil holds the fixtures shared by the test suites of the apps.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
)

const Password = "s3cr3t-pwd"

// Config returns the configuration of the test environment.
func Config() *core.Config {
	c := &core.Config{
		Env:       "TEST",
		AppName:   "Attendly",
		TestMode:  true,
		SecretKey: "test-secret",
	}
	c.Server.JWTExpirationDelta = time.Hour
	c.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	c.Attendance.DefaultRequiredPercentage = 75
	return c
}

// Validator returns a validator with every custom validation and translation registered.
func Validator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	organization.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	return validate, translator
}

func CreateOrg(t *testing.T, svc *organization.Service, name string) organization.Organization {
	org, err := svc.Create(context.Background(), organization.NewOrganization{Name: name})
	if err != nil {
		t.Fatalf("CreateOrg() failed: %v", err)
	}
	return org
}

// CreateUser creates a user of org whose email is uname@test.cd and password is Password.
func CreateUser(
	t *testing.T,
	svc *user.Service,
	org organization.Organization,
	uname, role string,
	isActive bool,
) user.User {
	ctx := context.Background()
	usr, err := svc.Create(ctx, user.NewUser{
		OrganizationID: org.ID,
		Username:       uname,
		Email:          uname + "@test.cd",
		Password:       Password,
		Role:           role,
		FirstName:      "First",
		LastName:       "Last",
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	if !isActive {
		no := false
		if usr, err = svc.UpdateRoleStatus(ctx, user.User{}, usr, user.UpdateRoleStatus{IsActive: &no}); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}
