// Command cronflow runs scheduled tasks declared in a config file and
// offers helpers for checking cron expressions and configs.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cronflow:", err)
		os.Exit(1)
	}
}
