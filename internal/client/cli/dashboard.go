package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (a *App) newDashboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show dashboard metrics, stats, timeline and recent CVEs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				snap, err := a.exec.Dashboard(ctx, limit)
				if err != nil {
					return err
				}
				return a.printJSON(snap)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent CVEs")
	return cmd
}
