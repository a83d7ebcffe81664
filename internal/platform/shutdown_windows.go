//go:build windows

package platform

import "os"

// Console apps only see Ctrl+C reliably
var shutdownSignals = []os.Signal{os.Interrupt}
