package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/vnykmshr/cronflow/pkg/config"
)

func validateCommand(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("validate: config path required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	for _, t := range cfg.Tasks {
		if _, err := lookupAction(t.Action); err != nil {
			return fmt.Errorf("task %s: %w", t.Name, err)
		}
	}

	out := ctx.App.Writer
	fmt.Fprintf(out, "%s: ok, %d tasks\n", path, len(cfg.Tasks))
	for _, t := range cfg.Tasks {
		fmt.Fprintf(out, "  %-20s %s\n", t.Name, t.TriggerSpec())
	}
	return nil
}
