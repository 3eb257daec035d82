package main

import (
	"context"

	"github.com/pkg/errors"
)

func (cli *commandLine) resetPassword(ctx context.Context, orgSlug, uname, pwd string) error {
	org, err := cli.orgSvc.GetBySlug(ctx, orgSlug)
	if err != nil {
		return errors.Wrap(err, "getting organization")
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, org.ID, uname)
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	if _, err = cli.usrSvc.ResetPassword(ctx, usr, pwd); err != nil {
		return err
	}
	cli.logger.Info("password reset for " + usr.Username)
	return nil
}
