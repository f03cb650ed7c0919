package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"profilescale/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [factor]",
	Short: "Adjust the settings folder now and again whenever it changes",
	Long: `Runs one adjustment, then watches the settings folder and runs again once
changes have settled for the configured debounce window. Stop with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	f, err := factorArg(out, args)
	if err != nil {
		return err
	}

	in := cfg.InputPath(base)
	dst := cfg.OutputPath(base, f)
	if within(dst, in) {
		return fmt.Errorf("output directory %s is inside the watched directory %s", dst, in)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := scale(ctx, out, f); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "ERROR:", err)
	}

	w, err := watch.New(in, cfg.GetDebounce(), func(ctx context.Context) error {
		_, err := scale(ctx, out, f)
		return err
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in, err)
	}

	s := newStyles(out)
	fmt.Fprintln(out, s.Info.Render("Watching "+in+" (Ctrl+C to stop)"))

	select {
	case <-ctx.Done():
	case <-w.Done():
	}

	stats := w.Stats()
	logger.Info("Watch stopped",
		zap.Int("events", stats.Events),
		zap.Int("runs", stats.Runs),
		zap.Int("failures", stats.Failures))
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
