package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"profilescale/internal/history"
	"profilescale/internal/profile"
	"profilescale/internal/transformer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runScale is the root command: one adjustment of the settings folder.
func runScale(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	f, err := factorArg(out, args)
	if err != nil {
		return err
	}
	_, err = scale(commandContext(cmd), out, f)
	return err
}

// factorArg returns the factor given on the command line, or announces and
// returns the configured default.
func factorArg(out io.Writer, args []string) (profile.Factor, error) {
	if len(args) > 0 {
		f, err := profile.ParseFactor(args[0])
		if err != nil {
			return profile.Factor{}, fmt.Errorf("invalid factor %q: %w", args[0], err)
		}
		return f, nil
	}

	s := newStyles(out)
	f, err := profile.NewFactor(cfg.Factor)
	if err != nil {
		return profile.Factor{}, err
	}
	fmt.Fprintln(out, s.Info.Render(fmt.Sprintf("INFO: You didn't include a [factor]. The default: %s, will be used.", f)))
	fmt.Fprintln(out, s.Muted.Render("Usage: profilescale [factor]"))
	return f, nil
}

// scale runs the transformer with the loaded configuration and prints
// progress to out. The report is returned even when the run fails.
func scale(ctx context.Context, out io.Writer, f profile.Factor) (*transformer.Report, error) {
	s := newStyles(out)

	rules, err := cfg.FileRules()
	if err != nil {
		return nil, err
	}
	in := cfg.InputPath(base)
	dst := cfg.OutputPath(base, f)

	fmt.Fprintln(out, s.Title.Render("RUNNING: Based on factor → "+f.String()))
	fmt.Fprintln(out, s.Muted.Render("FROM: "+in))

	t, err := transformer.New(transformer.Options{
		InputDir:  in,
		OutputDir: dst,
		Factor:    f,
		Files:     rules,
		Parallel:  cfg.Execution.Parallel,
		Workers:   cfg.Execution.Workers,
		KeepGoing: cfg.Execution.KeepGoing,
		DryRun:    dryRun,
		OnFile:    func(res transformer.FileResult) { printResult(out, s, res) },
	}, logger)
	if err != nil {
		return nil, err
	}

	report, runErr := t.Run(ctx)
	if report != nil {
		recordRun(ctx, report)
	}
	if runErr != nil {
		if report != nil {
			failed := len(report.Failures())
			fmt.Fprintln(out, s.Error.Render("FAILED: "+strconv.Itoa(failed)+" file(s) could not be processed"))
		}
		return report, fmt.Errorf("adjusting %s failed: %w", in, runErr)
	}

	if dryRun {
		fmt.Fprintln(out, s.Warning.Render("DRY RUN: nothing was written. Output would go to:"))
	} else {
		fmt.Fprintln(out, s.Success.Render("COMPLETED: Base directory was "+base+" . Please locate the new files at:"))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    "+s.Bold.Render(dst))
	return report, nil
}

func printResult(out io.Writer, s styles, res transformer.FileResult) {
	switch {
	case res.Failed():
		fmt.Fprintln(out, s.Error.Render("Failed: "+res.Name+": "+res.Err.Error()))
	case res.Action == transformer.ActionSkipped:
		fmt.Fprintln(out, s.Warning.Render("Skipped: "+res.Name))
	case res.DryRun && res.Action == transformer.ActionTransformed:
		fmt.Fprintln(out, "Would write: "+res.Name)
	case res.DryRun:
		fmt.Fprintln(out, s.Muted.Render("Would copy: "+res.Name))
	case res.Action == transformer.ActionTransformed:
		fmt.Fprintln(out, s.Success.Render("Done: "+res.Name))
	default:
		fmt.Fprintln(out, s.Muted.Render("Copied: "+res.Name))
	}
}

// recordRun journals a finished run. Journal problems never fail the run.
func recordRun(ctx context.Context, report *transformer.Report) {
	if report.DryRun || !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.HistoryPath(base))
	if err != nil {
		logger.Warn("Failed to open run history", zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.Record(ctx, history.FromReport(report)); err != nil {
		logger.Warn("Failed to record run", zap.String("run_id", report.RunID), zap.Error(err))
	}
}
