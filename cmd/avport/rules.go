package main

import (
	"fmt"

	"avport/internal/catalog"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the diagnostics avport can fix",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		for _, r := range catalog.Default().Rules() {
			fmt.Fprintf(w, "%s  %s\n", ruleStyle.Sprint(r.ID()), r.Title())
		}
	},
}
