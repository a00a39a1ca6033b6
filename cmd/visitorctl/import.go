package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/visitor-insights/internal/company"
	"github.com/ignite/visitor-insights/internal/datanorm"
	"github.com/ignite/visitor-insights/internal/visitor"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Normalize and classify a spreadsheet export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := datanorm.ReadFile(filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		res, err := datanorm.NewAdapter().AdaptAll(cmd.Context(), rows)
		if err != nil {
			return err
		}

		records := res.Records
		if sessionize, _ := cmd.Flags().GetBool("sessionize"); sessionize {
			if records, err = visitor.Sessionize(records); err != nil {
				return err
			}
		}
		resolver := company.NewDirectoryResolver(company.NewStaticDirectory(company.DefaultCompanies))
		if records, err = company.Enrich(cmd.Context(), resolver, records); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), datanorm.Result{Records: records, Issues: res.Issues})
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "IP\tCOMPANY\tPAGE\tPAGES\tDURATION\tTIER")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%ds\t%s\n",
				r.IPAddress(), r.Company(), r.PageURL(), r.PageViewCount(), r.SessionDurationSeconds(), r.EngagementTier())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, issue := range res.Issues {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", issue)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("json", false, "Print records and issues as JSON")
	importCmd.Flags().Bool("sessionize", false, "Roll rows up per session before classifying")
}
