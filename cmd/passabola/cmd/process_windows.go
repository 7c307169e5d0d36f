//go:build windows

package cmd

import "os"

// gracefulSignals returns the OS signals to capture for graceful shutdown.
// Windows only delivers os.Interrupt to console processes.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
