package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/internal/validation"
	"github.com/iudanet/cvewatch/pkg/api"
)

func (a *App) newAnalyzeCmd() *cobra.Command {
	var analysisType string

	cmd := &cobra.Command{
		Use:   "analyze <cve-id>",
		Short: "Run AI analysis of a CVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := validation.NormalizeCVEID(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), func(ctx context.Context) error {
				resp, err := a.exec.Analyze(ctx, api.AnalysisRequest{CVEID: id, AnalysisType: analysisType})
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().StringVar(&analysisType, "type", "comprehensive", "Analysis type")
	return cmd
}

func (a *App) newPoCCmd() *cobra.Command {
	var (
		list     bool
		generate bool
		model    string
	)

	cmd := &cobra.Command{
		Use:   "poc [cve-id]",
		Short: "Show or generate proof-of-concept code for a CVE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			switch {
			case list:
			case len(args) == 0:
				return errors.New("cve id is required unless --list is set")
			default:
				var err error
				if id, err = validation.NormalizeCVEID(args[0]); err != nil {
					return err
				}
			}

			return a.run(cmd.Context(), func(ctx context.Context) error {
				var (
					resp json.RawMessage
					err  error
				)
				switch {
				case list:
					resp, err = a.exec.ListPoCs(ctx)
				case generate:
					resp, err = a.exec.GeneratePoC(ctx, api.PoCRequest{CVEID: id, Model: model})
				default:
					resp, err = a.exec.GetPoC(ctx, id)
				}
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List generated PoCs")
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a new PoC")
	cmd.Flags().StringVar(&model, "model", "", "Model used for generation")
	return cmd
}
