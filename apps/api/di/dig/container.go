// Package dig_container wires the API process with go.uber.org/dig.
package dig_container

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/caseload/caseload/apps/api/echo"
	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
	emailsvc "github.com/caseload/caseload/services/email"
	logsvc "github.com/caseload/caseload/services/logger"
	"github.com/caseload/caseload/storage/database"
	inmemdb "github.com/caseload/caseload/storage/database/inmem"
	sqlxrepos "github.com/caseload/caseload/storage/database/sqlx"
)

const dbSetUpTimeout = 30 * time.Second

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Storage is the repositories of the configured database.
	Storage struct {
		dig.Out
		UserRepo       user.Repository
		AssignmentRepo assignment.Repository
		Close          func() error `name:"dbClose"`
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// newStorage opens the in-memory database, or creates, opens and migrates postgres.
func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	if conf.Database.InMemory {
		loggerParam.Logger.Info("using the in-memory database")
		db := inmemdb.Open()
		return Storage{
			UserRepo:       inmemdb.NewUserRepository(db),
			AssignmentRepo: inmemdb.NewAssignmentRepository(db),
			Close:          func() error { return nil },
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbSetUpTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return Storage{}, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return Storage{}, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return Storage{}, err
	}
	return Storage{
		UserRepo:       sqlxrepos.NewUserRepository(db),
		AssignmentRepo: sqlxrepos.NewAssignmentRepository(db),
		Close:          db.Close,
	}, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newUserService(conf *core.Config, repo user.Repository, mailSvc core.EmailService) user.ServiceInterface {
	return user.NewService(conf, repo, mailSvc)
}

func newAssignmentService(repo assignment.Repository) assignment.ServiceInterface {
	return assignment.NewService(repo)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc user.ServiceInterface,
	asgSvc assignment.ServiceInterface,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		AssignmentSvc: asgSvc,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(newUserService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
