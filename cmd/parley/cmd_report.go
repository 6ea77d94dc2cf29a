package main

import (
	"github.com/spf13/cobra"

	"parley/internal/report"
)

func newReportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded estimation and replay runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			database, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			r, err := report.NewTracker(database).Generate()
			if err != nil {
				return err
			}
			report.LogReport(r)
			return nil
		},
	}
}
