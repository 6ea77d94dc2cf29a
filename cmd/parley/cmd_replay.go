package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parley/internal/domain"
	"parley/internal/recorder"
	"parley/internal/replay"
)

type replayOptions struct {
	domainPath string
	tracePath  string
	window     int
}

func newReplayCommand(root *rootOptions) *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an opponent bid trace through the opponent model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.domainPath, "domain", "", "Domain YAML file (required)")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "Opponent trace YAML file (required)")
	cmd.Flags().IntVar(&opts.window, "window", 0, "Hardheadedness lookback in turns (overrides config)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("trace")

	return cmd
}

func runReplay(cmd *cobra.Command, root *rootOptions, opts *replayOptions) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}
	window := cfg.Opponent.HardheadedWindow
	if opts.window > 0 {
		window = opts.window
	}

	d, err := domain.LoadDomain(opts.domainPath)
	if err != nil {
		return err
	}
	trace, err := domain.LoadTrace(opts.tracePath, d)
	if err != nil {
		return err
	}

	var rec *recorder.Recorder
	if cfg.General.Record {
		database, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		rec = recorder.New(database)
	}

	summary, err := replay.NewRunner(window, rec).Run(d.Name, trace)
	if err != nil {
		return fmt.Errorf("replaying trace: %w", err)
	}

	return printReplay(cmd.OutOrStdout(), d, summary)
}

func printReplay(out io.Writer, d *domain.Domain, s *replay.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "TURN\tBID\tUTILITY\tHARDHEADED\n")
	for _, t := range s.Turns {
		h := "-"
		if t.HasSignal {
			h = fmt.Sprintf("%.4f", t.Hardheaded)
		}
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\n", t.Index, t.Bid, t.Utility, h)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "ISSUE\tWEIGHT\n")
	for _, is := range d.Issues() {
		fmt.Fprintf(w, "%s\t%.4f\n", is.Name, s.Model.Weight(is.ID))
	}

	return w.Flush()
}
