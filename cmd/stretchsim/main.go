// Command stretchsim is the command-line client for stretchsim-server.
package main

import (
	"os"

	"github.com/yaroslav/stretchsim/cmd/stretchsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
