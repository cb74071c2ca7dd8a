package cli

import (
	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild the godroll baselines from stored listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Aggregate(cmd.Context())
	},
}
