package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/vnykmshr/cronflow/pkg/scheduling/cronexpr"
)

func nextCommand(ctx *cli.Context) error {
	text := ctx.Args().First()
	if text == "" {
		return errors.New("next: expression required")
	}
	expr, err := cronexpr.Parse(text)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(ctx.String("location"))
	if err != nil {
		return fmt.Errorf("next: %w", err)
	}

	from := time.Now()
	if s := ctx.String("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("next: --from: %w", err)
		}
	}
	from = from.In(loc)

	out := ctx.App.Writer
	for i := 0; i < ctx.Int("count"); i++ {
		if from, err = expr.Next(from); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", from.Format(time.RFC3339), from.Weekday().String()[:3])
	}
	return nil
}
