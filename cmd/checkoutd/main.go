// Command checkoutd runs the checkout widget bridge daemon and related
// utilities.
//
// Layout:
//   - main.go   (entry point)
//   - root.go   (cobra tree, persistent flags, config resolution)
//   - logger.go (zerolog console/JSON logger, rotating log file)
//   - serve.go  (bridge daemon with graceful shutdown)
//   - url.go    (print or QR-encode the widget URL)
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
