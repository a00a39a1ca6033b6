package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/visitor-insights/internal/snapshot"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant about the current visitors",
	Args:  cobra.MinimumNArgs(1),
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
		svc, err := a.Assistant(cmd.Context(), refresher)
		if err != nil {
			return err
		}

		answer, err := svc.Ask(cmd.Context(), strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer.Insight)
		return nil
	},
}
