package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zephyrtronium/mathparse"
)

// debounceDelay is the time after evaluating a file during which further
// changes to it are ignored. Editors often write a file several times when
// saving it.
const debounceDelay = 200 * time.Millisecond

func newWatchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE",
		Short: "Evaluate a file each time it changes",
		Long: `watch evaluates FILE as a program, then evaluates it again each time it
changes until interrupted. Each evaluation starts from the configured
variables and definitions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return s.watch(ctx, args[0])
		},
	}
}

// watch evaluates the file at path now and after every change until ctx is
// done.
func (s *session) watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory, since saving may replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	s.log.Info("watching", "file", path)

	base := s.ctx
	last := time.Now()
	s.runFile(base, path)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped watching", "file", path)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(last) < debounceDelay {
				continue
			}
			last = time.Now()
			s.log.Debug("file changed", "file", path, "op", event.Op.String())
			s.runFile(base, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error("watcher error", "error", err)
		}
	}
}

// runFile evaluates the file at path in a fresh copy of base.
func (s *session) runFile(base *mathparse.Context, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		s.log.Error("failed to read file", "file", path, "error", err)
		return
	}
	s.ctx = base.Clone()
	if s.run(string(b)) {
		s.log.Info("evaluated", "file", path)
	}
}
