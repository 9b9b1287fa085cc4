package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coastalkit/nestor/internal/runtime"
	"github.com/fsnotify/fsnotify"
)

// WatchStatus prints the pipeline status whenever either case directory
// changes, until the context is canceled. Events are debounced: solver runs
// touch many files in bursts and a line per write would drown the operator.
func WatchStatus(ctx context.Context, orch *runtime.Orchestrator, fullDir, subDir string, out io.Writer, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{fullDir, subDir} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	printStatus := func() {
		state, err := orch.Status(ctx)
		if err != nil {
			logger.Error("failed to load status", "error", err)
			return
		}
		line := fmt.Sprintf("%s  phase=%s", time.Now().Format(time.TimeOnly), state.Phase)
		if state.Halted != "" {
			line += "  halted=" + state.Halted
		}
		fmt.Fprintln(out, line)
	}

	printStatus()

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.Debug("case directory changed", "file", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			printStatus()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
