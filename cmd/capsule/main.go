// capsule tracks the lifecycle of externally provisioned workers that report
// their status over authenticated HTTP callbacks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
