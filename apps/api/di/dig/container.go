package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/attendly/attendly/apps/api/echo"
	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/reminder"
	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
	emailsvc "github.com/attendly/attendly/services/email"
	logsvc "github.com/attendly/attendly/services/logger"
	pushsvc "github.com/attendly/attendly/services/push"
	"github.com/attendly/attendly/storage/database"
	inmemdb "github.com/attendly/attendly/storage/database/inmem"
	sqlxrepos "github.com/attendly/attendly/storage/database/sqlx"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	ReminderLoggerParam struct {
		dig.In
		Logger core.Logger `name:"reminderLogger"`
	}

	// DBCloser releases the database connections.
	DBCloser func() error

	// Storage holds the repositories of the configured database engine.
	Storage struct {
		dig.Out
		DB        echoapi.Pinger
		SQL       *sql.DB // nil with the in-memory engine
		Close     DBCloser
		Orgs      organization.Repository
		Users     user.Repository
		Courses   course.Repository
		Timetable timetable.Repository
		Records   rollcall.Repository
	}
)

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newReminderLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "REMINDER : ", log.LstdFlags), conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		loggerParam.Logger.Warn("using the in-memory database, data will be lost on exit")
		return Storage{
			DB:        db,
			Close:     func() error { return nil },
			Orgs:      inmemdb.NewOrganizationRepository(db),
			Users:     inmemdb.NewUserRepository(db),
			Courses:   inmemdb.NewCourseRepository(db),
			Timetable: inmemdb.NewTimetableRepository(db),
			Records:   inmemdb.NewRollcallRepository(db),
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Storage{
		DB:        db,
		SQL:       db.DB,
		Close:     db.Close,
		Orgs:      sqlxrepos.NewOrganizationRepository(db),
		Users:     sqlxrepos.NewUserRepository(db),
		Courses:   sqlxrepos.NewCourseRepository(db),
		Timetable: sqlxrepos.NewTimetableRepository(db),
		Records:   sqlxrepos.NewRollcallRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newPushService returns nil when push cannot be configured: reminders then go by email only.
func newPushService(conf *core.Config, logger core.Logger) *pushsvc.Service {
	svc, err := pushsvc.NewService(conf, logger)
	if err != nil {
		logger.Warn(fmt.Sprintf("push notifications disabled: %v", err))
		return nil
	}
	return svc
}

func newRollcallService(repo rollcall.Repository, usrSvc *user.Service) *rollcall.Service {
	return rollcall.NewService(repo, usrSvc)
}

func newReminderService(
	conf *core.Config,
	orgSvc *organization.Service,
	usrSvc *user.Service,
	courseSvc *course.Service,
	mailSvc core.EmailService,
	pushSvc *pushsvc.Service,
	loggerParam ReminderLoggerParam,
) *reminder.Service {
	var notifiers []reminder.Notifier
	if pushSvc != nil {
		notifiers = append(notifiers, pushsvc.NewNotifier(pushSvc))
	}
	if conf.Reminder.EmailEnabled {
		notifiers = append(notifiers, reminder.NewEmailNotifier(mailSvc))
	}
	return reminder.NewService(orgSvc, usrSvc, courseSvc, loggerParam.Logger, notifiers...)
}

func newReminderScheduler(svc *reminder.Service, loggerParam ReminderLoggerParam) *reminder.Scheduler {
	return reminder.NewScheduler(svc, loggerParam.Logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	db echoapi.Pinger,
	validate *validator.Validate,
	translator ut.Translator,
	orgSvc *organization.Service,
	usrSvc *user.Service,
	courseSvc *course.Service,
	ttSvc *timetable.Service,
	rcSvc *rollcall.Service,
	pushSvc *pushsvc.Service,
) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		DB:           db,
		Validate:     validate,
		Translator:   translator,
		OrgSvc:       orgSvc,
		UserSvc:      usrSvc,
		CourseSvc:    courseSvc,
		TimetableSvc: ttSvc,
		RollcallSvc:  rcSvc,
	}
	if pushSvc != nil {
		deps.VAPIDPublicKey = pushSvc.PublicKey()
	}
	return echoapi.NewServer(deps)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newReminderLogger, dig.Name("reminderLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newEmailService))
	must(c.Provide(newPushService))
	must(c.Provide(organization.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(timetable.NewService))
	must(c.Provide(newRollcallService))
	must(c.Provide(newReminderService))
	must(c.Provide(newReminderScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
