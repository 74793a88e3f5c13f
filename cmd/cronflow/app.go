package main

import (
	"io"

	"github.com/urfave/cli"
)

var (
	nextFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "count, n",
			Value: 5,
			Usage: "number of fire times to print",
		},
		cli.StringFlag{
			Name:  "from, f",
			Usage: "RFC3339 instant to start from (default: now)",
		},
		cli.StringFlag{
			Name:  "location, l",
			Value: "Local",
			Usage: "time zone the expression is evaluated in",
		},
	}

	runFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "override metrics.addr from the config",
		},
	}
)

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "cronflow"
	app.HelpName = "cronflow"
	app.Usage = "run tasks on cron, fixed-rate and fixed-delay schedules"
	app.UsageText = "cronflow <command> [arguments...]"
	app.Version = version
	app.Writer = out
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "run the tasks declared in a config file",
			ArgsUsage: "<config>",
			Flags:     runFlags,
			Action:    runCommand,
		},
		{
			Name:      "next",
			Usage:     "print the next fire times of a cron expression",
			ArgsUsage: "<expression>",
			Flags:     nextFlags,
			Action:    nextCommand,
		},
		{
			Name:      "validate",
			Usage:     "check a config file and every task trigger",
			ArgsUsage: "<config>",
			Action:    validateCommand,
		},
	}
	return app
}
