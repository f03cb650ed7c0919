package main

import (
	"fmt"
	"os"
	"strconv"

	"profilescale/internal/history"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent adjustment runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	s := newStyles(out)

	path := cfg.HistoryPath(base)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, s.Muted.Render("No runs recorded yet."))
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, s.Muted.Render("No runs recorded yet."))
		return nil
	}

	tbl := newTable("STARTED", "FACTOR", "STATUS", "DONE", "COPIED", "FAILED", "OUTPUT")
	for _, r := range runs {
		tbl.addRow(
			r.Started.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(r.Factor, 'f', -1, 64),
			r.Status,
			strconv.Itoa(r.Transformed),
			strconv.Itoa(r.Copied),
			strconv.Itoa(r.Failed),
			r.OutputDir,
		)
	}
	fmt.Fprintln(out, s.Title.Render("Recent runs"))
	fmt.Fprint(out, tbl.render(s))
	return nil
}
