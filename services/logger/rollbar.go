package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/user"
)

// RollbarLogger reports to Rollbar and tees everything to a std logger so
// deployed logs stay greppable. A user.User among the args is attached to
// the reported event as the acting person.
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

func (l RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.Debug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.Info, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.Warning, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.Error, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	send(l.extractPerson(msg, args)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

// extractPerson pulls the first user.User out of args and registers it as
// the event's person; without one any previous person is cleared.
func (l RollbarLogger) extractPerson(msg string, args []interface{}) []interface{} {
	var usrSet bool
	rest := make([]interface{}, 0, len(args)+1)
	rest = append(rest, msg)
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if ok && !usrSet {
			rollbar.SetPerson(strconv.FormatInt(usr.ID, 10), usr.Username, usr.Email)
			usrSet = true
			continue
		}
		rest = append(rest, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rest
}
