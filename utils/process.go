package utils

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"
)

// SignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// HandleSubroutinePanic recovers a panicking goroutine and logs it. The
// optional callbacks run with the recovered value.
func HandleSubroutinePanic(identifier string, onPanic ...func(err interface{})) {
	if err := recover(); err != nil {
		logrus.WithError(fmt.Errorf("%v", err)).Errorf("uncaught panic in %v subroutine: %v, stack: %v", identifier, err, string(debug.Stack()))
		for _, fn := range onPanic {
			fn(err)
		}
	}
}
