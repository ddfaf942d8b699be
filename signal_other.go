//go:build !unix

package crb

import "os"

var defaultTrapSignals = []os.Signal{os.Interrupt}

func signalName(s os.Signal) string {
	if s == os.Interrupt {
		return "SIGINT"
	}
	return s.String()
}
