package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/visitor-insights/internal/snapshot"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Fetch the configured source and print its engagement summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		refresher, err := a.Refresher(snapshot.NewMemoryStore())
		if err != nil {
			return err
		}
		s, err := refresher.Summary(cmd.Context())
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), s)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Visits: %d  Unique IPs: %d  Companies: %d  Avg session: %ds\n",
			s.TotalVisitors, s.UniqueIPs, s.UniqueCompanies, s.AverageSessionTime)
		for _, t := range s.Tiers {
			fmt.Fprintf(out, "  %-6s %d\n", t.Tier, t.Count)
		}
		fmt.Fprintln(out, "Top pages:")
		for _, p := range s.TopPages {
			fmt.Fprintf(out, "  %-40s %3d visits  avg %ds\n", p.Page, p.Count, p.AvgDuration)
		}
		fmt.Fprintln(out, "Top companies:")
		for _, c := range s.TopCompanies {
			fmt.Fprintf(out, "  %-40s %3d\n", c.Company, c.Count)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().Bool("json", false, "Print the summary as JSON")
}
