package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ignite/visitor-insights/internal/engagement"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <page-views> <duration-seconds>",
	Short: "Classify one visit as High, Medium or Low engagement",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("page views: %w", err)
		}
		duration, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		tier, err := engagement.Classify(pages, duration)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tier)
		return nil
	},
}
