//go:build windows

package signals

import (
	"os"
	"os/signal"
)

func init() {
	signal.Notify(sigChan, os.Interrupt)
}

// Windows has no SIGHUP.
func dispatch(sig os.Signal) {
	if sig == os.Interrupt {
		log.WithField("signal", sig.String()).Info("shutting down")
		interrupters.run()
	}
}
