//go:build !windows

package signals

import (
	"os"
	"os/signal"
	"syscall"
)

func init() {
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

func dispatch(sig os.Signal) {
	switch sig {
	case syscall.SIGHUP:
		log.WithField("signal", sig.String()).Info("reloading configuration")
		reloaders.run()
	case syscall.SIGINT, syscall.SIGTERM:
		log.WithField("signal", sig.String()).Info("shutting down")
		interrupters.run()
	}
}
