// Command hireflowctl is the operator CLI for the hiring workflow service.
package main

import (
	"fmt"
	"os"

	"hireflow/internal/config"
)

func main() {
	if err := newRootCommand(config.Load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
