package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parley/internal/domain"
	"parley/internal/elicit"
	"parley/internal/recorder"
)

type estimateOptions struct {
	domainPath  string
	rankingPath string
	solver      string
}

func newEstimateCommand(root *rootOptions) *cobra.Command {
	opts := &estimateOptions{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate an additive utility space from a bid ranking",
		Long: `Estimate issue weights and value utilities from a worst-to-best ranking
of bids and the declared utilities of its lowest and highest bid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.domainPath, "domain", "", "Domain YAML file (required)")
	cmd.Flags().StringVar(&opts.rankingPath, "ranking", "", "Ranking YAML file (required)")
	cmd.Flags().StringVar(&opts.solver, "solver", "", "LP backend: gonum or tableau (overrides config)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("ranking")

	return cmd
}

func runEstimate(cmd *cobra.Command, root *rootOptions, opts *estimateOptions) error {
	cfg, err := root.load(cmd)
	if err != nil {
		return err
	}
	if opts.solver != "" {
		cfg.Estimation.Solver = opts.solver
	}

	d, err := domain.LoadDomain(opts.domainPath)
	if err != nil {
		return err
	}
	rk, err := domain.LoadRanking(opts.rankingPath, d)
	if err != nil {
		return err
	}

	est, err := elicit.NewFromConfig(cfg.Estimation)
	if err != nil {
		return err
	}
	fit, err := est.Fit(d, rk)
	if err != nil {
		return fmt.Errorf("estimating utility space: %w", err)
	}

	if cfg.General.Record {
		database, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := recorder.New(database).RecordEstimation(d, rk, fit); err != nil {
			return err
		}
	}

	return printFit(cmd.OutOrStdout(), d, rk, fit)
}

func printFit(out io.Writer, d *domain.Domain, rk *domain.BidRanking, fit *elicit.Fit) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "ISSUE\tWEIGHT\tVALUE\tEVALUATION\n")
	for _, is := range d.Issues() {
		for i, v := range is.Values {
			weight := ""
			if i == 0 {
				weight = fmt.Sprintf("%.4f", fit.Space.Weight(is.ID))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\n", is.Name, weight, v, fit.Space.Evaluation(is.ID, v))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "RANK\tBID\tUTILITY\n")
	for i, b := range rk.Bids() {
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", i, b, fit.Space.Utility(b))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "solver\t%s\n", fit.Solver)
	fmt.Fprintf(w, "total slack\t%.6f\n", fit.TotalSlack)

	return w.Flush()
}
