package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vnykmshr/cronflow/pkg/config"
	"github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"
)

// action builds the callback for a configured task.
type action func(task config.TaskConfig, log *zap.Logger) (scheduler.Callback, error)

var actions = map[string]action{
	"log":      logAction,
	"http-get": httpGetAction,
	"sleep":    sleepAction,
}

func lookupAction(name string) (action, error) {
	if name == "" {
		name = "log"
	}
	a, ok := actions[name]
	if !ok {
		known := make([]string, 0, len(actions))
		for k := range actions {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown action %q (known: %s)", name, strings.Join(known, ", "))
	}
	return a, nil
}

// logAction writes one info line per firing.
func logAction(task config.TaskConfig, log *zap.Logger) (scheduler.Callback, error) {
	msg := task.Args["message"]
	if msg == "" {
		msg = "task fired"
	}
	log = log.With(zap.String("task", task.Name))
	return func(context.Context) error {
		log.Info(msg)
		return nil
	}, nil
}

// httpGetAction requests args.url and fails on a non-2xx status.
func httpGetAction(task config.TaskConfig, _ *zap.Logger) (scheduler.Callback, error) {
	url := task.Args["url"]
	if url == "" {
		return nil, fmt.Errorf("http-get: args.url is required")
	}
	timeout, err := durationArg(task, "timeout", 10*time.Second)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("http-get %s: status %s", url, resp.Status)
		}
		return nil
	}, nil
}

// sleepAction blocks for args.duration or until the scheduler stops.
func sleepAction(task config.TaskConfig, _ *zap.Logger) (scheduler.Callback, error) {
	d, err := durationArg(task, "duration", time.Second)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, nil
}

func durationArg(task config.TaskConfig, key string, def time.Duration) (time.Duration, error) {
	s, ok := task.Args[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: args.%s: %w", task.Name, key, err)
	}
	return d, nil
}
