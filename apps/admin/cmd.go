package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/reminder"
	"github.com/attendly/attendly/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB // nil with the in-memory engine
	logger   core.Logger
	validate *validator.Validate
	orgSvc   *organization.Service
	usrSvc   *user.Service
	reminder *reminder.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Fprintln(cli.out, "  adduser -org SLUG -username USERNAME -email EMAIL [-role ROLE] - add a user to an organization")
	fmt.Fprintln(cli.out, "  resetpassword -org SLUG -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  remind - send the attendance reminders now")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserOrg := addUserCmd.String("org", "", "The organization's code (slug).")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "The user's role: admin, teacher or student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordOrg := resetPasswordCmd.String("org", "", "The organization's code (slug).")
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserOrg == "" || *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		usr, err := cli.addUser(ctx, *addUserOrg, user.NewUser{
			Username: *addUserUname,
			Email:    *addUserEmail,
			Password: pwd,
			Role:     *addUserRole,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "user %q added (%s)\n", usr.Username, usr.ID)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordOrg == "" || *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordOrg, *resetPasswordUname, pwd)

	case "remind":
		n, err := cli.reminder.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "reminders sent to %d user(s)\n", n)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
