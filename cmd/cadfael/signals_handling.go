package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/r-che/cadfael/common/log"
)

const (
	sigTerm	=	syscall.SIGTERM
	sigInt	=	syscall.SIGINT
	sigHup	=	syscall.SIGHUP
)

type signalsHandler struct {
	// Channels to receive signals from OS
	chStopApp	chan os.Signal
	chReLogs	chan os.Signal
	chDone		chan struct{}

	// Cancels the running operation
	cancel	context.CancelFunc

	stopping	bool
}

func newSignalsHandler(cancel context.CancelFunc) *signalsHandler {
	sh := signalsHandler{
		chDone:	make(chan struct{}),
		cancel:	cancel,
	}

	sh.chStopApp = make(chan os.Signal, 1)		// Stop application
	signal.Notify(sh.chStopApp, sigTerm, sigInt)

	sh.chReLogs = make(chan os.Signal, 1)		// Reopen logs
	signal.Notify(sh.chReLogs, sigHup)

	return &sh
}

// wait handles signals until stop is called
func (sh *signalsHandler) wait() {
	for {
		select {
			case <-sh.chDone:
				return

			case s := <-sh.chStopApp:
				if sh.stopping {
					log.F("Aborted because of the second termination signal")
				}
				sh.stopping = true

				log.W("Received %q - stopping... To abort immediately repeat the termination signal", s)
				sh.cancel()

			case s := <-sh.chReLogs:
				log.I("Received %q - reopening log file...", s)
				if err := log.Reopen(); err != nil {
					log.E("Cannot reopen logs: %v", err)
				} else {
					log.I("Log file reopened")
				}
		}
	}
}

func (sh *signalsHandler) stop() {
	signal.Stop(sh.chStopApp)
	signal.Stop(sh.chReLogs)
	close(sh.chDone)
}
