package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/rpggio/evtrack/internal/config"
	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Import task list definitions into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				info, err := a.svc.ImportYAML(cmd.Context(), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", info.Name, info.Kind)
			}
			return nil
		},
	}
}

func newAddFileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-file <file.yaml>",
		Short: "Track a definition file; edits are picked up on recalculation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.svc.AddFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s from %s\n", info.Name, info.Path)
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List task lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tID")
			for _, s := range a.svc.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Kind, s.ID)
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-list>",
		Short: "Delete a task list and its time log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newLogCmd(opts *rootOptions) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "log <task-list> <task-path> <minutes>",
		Short: "Log time against a task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[2], err)
			}
			req := tasklist.LogTimeRequest{TaskList: args[0], Path: args[1], Minutes: minutes}
			if start != "" {
				if req.Start, err = config.ParseDate(start); err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := a.svc.LogTime(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged %s to %s at %s\n",
				metrics.FormatDuration(entry.Elapsed, 60), entry.Path, entry.Start.Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC 3339 or YYYY-MM-DD (default now)")
	return cmd
}

func newTimeLogCmd(opts *rootOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "timelog <task-list>",
		Short: "Show the time log of a task list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter timelog.Filter
			var err error
			if from != "" {
				if filter.From, err = config.ParseDate(from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if to != "" {
				if filter.To, err = config.ParseDate(to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.svc.TimeLog(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "START\tMINUTES\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%g\t%s\n", e.Start.Format("2006-01-02 15:04"), e.Elapsed, e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "inclusive lower bound on start time")
	cmd.Flags().StringVar(&to, "to", "", "exclusive upper bound on start time")
	return cmd
}

func newRecalcCmd(opts *rootOptions) *cobra.Command {
	var (
		style       string
		includeCost bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "recalc <task-list>",
		Short: "Recalculate a task list and print its metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := metrics.ParseStyle(style)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.svc.Recalculate(cmd.Context(), args[0], includeCost)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			return printSnapshot(cmd.OutOrStdout(), snap, st)
		},
	}
	cmd.Flags().StringVar(&style, "style", "medium", "short|medium|full")
	cmd.Flags().BoolVar(&includeCost, "include-cost", false, "include metrics that reveal actual cost")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full snapshot as JSON")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "effective date, RFC 3339 or YYYY-MM-DD (default now)")
	return cmd
}

func printSnapshot(w io.Writer, snap *tasklist.Snapshot, style metrics.Style) error {
	fmt.Fprintf(w, "%s (%s)", snap.Name, snap.Kind)
	if !snap.EffectiveDate.IsZero() {
		fmt.Fprintf(w, " as of %s", snap.EffectiveDate.Format("2006-01-02"))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range snap.Metrics {
		v := r.Short
		switch style {
		case metrics.Medium:
			v = r.Medium
		case metrics.Full:
			v = r.Full
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, v)
	}
	label := "warning"
	if snap.HasErrors {
		label = "error"
	}
	for _, key := range slices.Sorted(maps.Keys(snap.Errors)) {
		fmt.Fprintf(tw, "%s %s\t%s\n", label, key, snap.Errors[key])
	}
	return tw.Flush()
}
