// Package errorreport forwards unexpected failures to Rollbar when a token is configured.
// Without a token every call is a no-op apart from the local log line.
package errorreport

import (
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rollbar/rollbar-go"
)

var enabled atomic.Bool

// Init configures the global rollbar notifier
func Init(token, environment string) {
	if token == "" {
		rollbar.SetEnabled(false)
		enabled.Store(false)
		return
	}

	host, _ := os.Hostname()
	if environment == "" {
		environment = "development"
	}

	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	enabled.Store(true)
	log.Infof("Rollbar error reporting enabled (%s)", environment)
}

// Enabled reports whether failures leave the process
func Enabled() bool {
	return enabled.Load()
}

// Error logs err and reports it with optional context
func Error(err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	log.Errorf("%v %v", err, extras)
	if !enabled.Load() {
		return
	}
	if extras != nil {
		rollbar.Error(err, extras)
		return
	}
	rollbar.Error(err)
}

// Critical reports a recovered panic
func Critical(value interface{}, extras map[string]interface{}) {
	log.Errorf("panic: %v %v", value, extras)
	if !enabled.Load() {
		return
	}
	rollbar.Critical(value, extras)
}

// Flush waits for queued reports to be delivered
func Flush() {
	if enabled.Load() {
		rollbar.Wait()
	}
}
