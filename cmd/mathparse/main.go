// Command mathparse parses and evaluates math expressions.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		// Failed expressions were already reported with their source.
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(cmd.ErrOrStderr(), renderError("", err))
		}
		os.Exit(1)
	}
}
