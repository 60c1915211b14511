// Command deuced runs the Deuce content-addressed block storage server.
package main

import (
	"fmt"
	"os"

	"github.com/sujala/deuce/cmd/deuced/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
