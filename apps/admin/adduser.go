package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/attendly/attendly/core/user"
)

// addUser creates a user in the organization identified by orgSlug.
func (cli *commandLine) addUser(ctx context.Context, orgSlug string, nu user.NewUser) (user.User, error) {
	org, err := cli.orgSvc.GetBySlug(ctx, orgSlug)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting organization")
	}
	nu.OrganizationID = org.ID
	if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.Create(ctx, nu)
}
