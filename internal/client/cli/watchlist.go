package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/internal/validation"
	"github.com/iudanet/cvewatch/pkg/api"
)

func (a *App) newWatchlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage watchlists",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watchlists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd.Context(), func(ctx context.Context) error {
					resp, err := a.exec.Watchlists(ctx)
					if err != nil {
						return err
					}
					return a.printJSON(resp)
				})
			},
		},
		a.newWatchlistCreateCmd(),
		&cobra.Command{
			Use:   "add <watchlist-id> <cve-id>...",
			Short: "Add CVEs to a watchlist",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids := make([]string, 0, len(args)-1)
				for _, raw := range args[1:] {
					id, err := validation.NormalizeCVEID(raw)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				return a.run(cmd.Context(), func(ctx context.Context) error {
					resp, err := a.exec.AddToWatchlist(ctx, args[0], ids...)
					if err != nil {
						return err
					}
					return a.printJSON(resp)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <watchlist-id>",
			Short: "Delete a watchlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd.Context(), func(ctx context.Context) error {
					if err := a.exec.DeleteWatchlist(ctx, args[0]); err != nil {
						return err
					}
					a.io.Printf("✓ Watchlist %s deleted\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show watchlist overview",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd.Context(), func(ctx context.Context) error {
					resp, err := a.exec.WatchlistStats(ctx)
					if err != nil {
						return err
					}
					return a.printJSON(resp)
				})
			},
		},
	)
	return cmd
}

func (a *App) newWatchlistCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				resp, err := a.exec.CreateWatchlist(ctx, api.WatchlistRequest{Name: args[0], Description: description})
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Watchlist description")
	return cmd
}
