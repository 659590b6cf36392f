package logsvc

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/user"
)

type level struct {
	name   string
	report func(interfaces ...interface{})
}

var (
	levelDebug = level{"DEBUG", rollbar.Debug}
	levelInfo  = level{"INFO", rollbar.Info}
	levelWarn  = level{"WARN", rollbar.Warning}
	levelError = level{"ERROR", rollbar.Error}
	levelFatal = level{"FATAL", rollbar.Critical}

	// rollbar keeps the person of the next reports globally
	personMu sync.Mutex
)

// RollbarLogger prints log entries to a std logger and reports them to rollbar.
// args may hold an error, maps of extra data and the user.User the entry relates to;
// the user is sent to rollbar only.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable turns reporting to rollbar on or off. Entries are always printed to the std logger.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) log(lvl level, msg string, args []interface{}) {
	var usr *user.User
	report := append(make([]interface{}, 0, len(args)+1), msg)
	line := []string{lvl.name + " " + msg}
	for _, arg := range args {
		if u, ok := arg.(user.User); ok {
			if usr == nil {
				usr = &u
			}
			continue
		}
		report = append(report, arg)
		line = append(line, fmt.Sprintf("%+v", arg))
	}
	l.std.Println(strings.Join(line, " | "))

	personMu.Lock()
	defer personMu.Unlock()
	if usr != nil {
		rollbar.SetPerson(usr.ID, usr.Name, usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	lvl.report(report...)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

// Fatal reports the entry, waits for rollbar to send it, then exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
