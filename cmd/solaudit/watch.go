package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appaudits "github.com/bryanwahyu/automaton-sol/internal/application/audits"
)

const watchDebounce = 300 * time.Millisecond

func newWatchCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-audit .sol files in a directory whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			svc := &appaudits.Service{Clock: opts.clock, Log: opts.logger}
			fmt.Fprintf(out, "watching %s for .sol changes, Ctrl+C to stop\n", args[0])

			return watchDir(cmd.Context(), args[0], watchDebounce, opts.logger, func(path string) {
				data, err := os.ReadFile(path)
				if err != nil {
					opts.logger.Warn("read failed", zap.String("file", path), zap.Error(err))
					return
				}
				report, err := svc.Preview(appaudits.SubmitCommand{Filename: filepath.Base(path), Source: string(data)})
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", filepath.Base(path), err)
					return
				}
				_ = writeText(out, report)
			})
		},
	}
}

// watchDir calls onChange once per burst of writes to a .sol file in dir.
// onChange runs on the watch loop, so calls never overlap and none happen
// after ctx is done. It returns when ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, log *zap.Logger, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// path -> deadline of the pending re-audit
	pending := map[string]time.Time{}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	schedule := func(now time.Time) {
		if len(pending) == 0 {
			timer.Stop()
			return
		}
		var next time.Time
		for _, at := range pending {
			if next.IsZero() || at.Before(next) {
				next = at
			}
		}
		timer.Reset(max(next.Sub(now), 0))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".sol" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			now := time.Now()
			pending[event.Name] = now.Add(debounce)
			schedule(now)
		case <-timer.C:
			now := time.Now()
			var due []string
			for path, at := range pending {
				if !at.After(now) {
					due = append(due, path)
					delete(pending, path)
				}
			}
			slices.Sort(due)
			schedule(now)
			for _, path := range due {
				if ctx.Err() != nil {
					return nil
				}
				onChange(path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
