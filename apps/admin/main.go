package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/dig"

	dig_container "github.com/attendly/attendly/apps/api/di/dig"
	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/reminder"
	"github.com/attendly/attendly/core/user"
	logsvc "github.com/attendly/attendly/services/logger"
)

type cliParams struct {
	dig.In

	Conf       *core.Config
	DB         *sql.DB
	Close      dig_container.DBCloser
	Validate   *validator.Validate
	Translator ut.Translator
	OrgSvc     *organization.Service
	UsrSvc     *user.Service
	Reminder   *reminder.Service
}

func main() {
	code := 0
	defer func() { os.Exit(code) }()

	c := dig_container.New()
	err := c.Invoke(func(p cliParams) {
		logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), p.Conf)
		defer func() {
			if err := p.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}()

		core.InitValidators(p.Validate, p.Translator)
		user.InitValidators(p.Validate, p.Translator)
		core.ParseEmailTemplates(logger)

		cli := commandLine{
			db:       p.DB,
			logger:   logger,
			validate: p.Validate,
			orgSvc:   p.OrgSvc,
			usrSvc:   p.UsrSvc,
			reminder: p.Reminder,
			out:      os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Error(fmt.Sprintf("error: %v", err), err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Printf("ADMIN : %v", err)
		code = 1
	}
}
