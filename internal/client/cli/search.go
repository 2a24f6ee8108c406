package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/internal/validation"
	"github.com/iudanet/cvewatch/pkg/api"
)

// advancedFlags - флаги, при которых поиск идёт через расширенный фильтр
var advancedFlags = []string{"severity", "cvss-min", "cvss-max", "from", "to", "vendor", "product", "exploit", "offset", "sort-by", "order"}

func (a *App) newSearchCmd() *cobra.Command {
	var (
		preset     string
		severity   []string
		cvssMin    float64
		cvssMax    float64
		dateFrom   string
		dateTo     string
		vendor     string
		product    string
		hasExploit bool
		limit      int
		offset     int
		sortBy     string
		order      string
		saveAs     string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search CVEs",
		Long: "Search CVEs by keyword. Filter flags or --preset switch to the advanced search.\n" +
			"Presets: critical, recent, high-cvss, exploitable.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = strings.TrimSpace(args[0])
			}
			flags := cmd.Flags()

			return a.run(cmd.Context(), func(ctx context.Context) error {
				if !flags.Changed("limit") {
					prefs, err := a.prefs.GetPreferences(ctx)
					if err != nil {
						return err
					}
					limit = prefs.DefaultLimit
				}

				advanced := preset != "" || saveAs != ""
				for _, name := range advancedFlags {
					advanced = advanced || flags.Changed(name)
				}
				if !advanced {
					if query == "" {
						return errors.New("search query or filter flags are required")
					}
					resp, err := a.exec.QuickSearch(ctx, query, limit)
					if err != nil {
						return err
					}
					return a.printJSON(resp)
				}

				var filter api.SearchFilter
				if preset != "" {
					var err error
					if filter, err = api.PresetFilter(preset, a.now()); err != nil {
						return err
					}
				}
				if query != "" {
					filter.Query = query
				}
				if len(severity) > 0 {
					filter.Severity = make([]string, 0, len(severity))
					for _, s := range severity {
						filter.Severity = append(filter.Severity, strings.ToUpper(strings.TrimSpace(s)))
					}
				}
				if flags.Changed("cvss-min") {
					filter.CVSSMin = &cvssMin
				}
				if flags.Changed("cvss-max") {
					filter.CVSSMax = &cvssMax
				}
				if flags.Changed("exploit") {
					filter.HasExploit = &hasExploit
				}
				if dateFrom != "" {
					filter.DateFrom = dateFrom
				}
				if dateTo != "" {
					filter.DateTo = dateTo
				}
				if vendor != "" {
					filter.Vendor = vendor
				}
				if product != "" {
					filter.Product = product
				}
				if sortBy != "" {
					filter.SortBy = sortBy
				}
				if order != "" {
					filter.SortOrder = order
				}
				if preset == "" || flags.Changed("limit") {
					filter.Limit = limit
				}
				filter.Offset = offset

				resp, err := a.exec.AdvancedSearch(ctx, filter)
				if err != nil {
					return err
				}
				if err := a.printJSON(resp); err != nil {
					return err
				}

				if saveAs != "" {
					if _, err := a.exec.SaveSearch(ctx, api.SavedSearchRequest{Name: saveAs, Parameters: filter}); err != nil {
						return err
					}
					a.io.Printf("✓ Search saved as %q\n", saveAs)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "Quick filter preset")
	f.StringSliceVar(&severity, "severity", nil, "Severity levels (CRITICAL, HIGH, MEDIUM, LOW)")
	f.Float64Var(&cvssMin, "cvss-min", 0, "Minimum CVSS score")
	f.Float64Var(&cvssMax, "cvss-max", 10, "Maximum CVSS score")
	f.StringVar(&dateFrom, "from", "", "Published on or after (YYYY-MM-DD)")
	f.StringVar(&dateTo, "to", "", "Published on or before (YYYY-MM-DD)")
	f.StringVar(&vendor, "vendor", "", "Vendor name")
	f.StringVar(&product, "product", "", "Product name")
	f.BoolVar(&hasExploit, "exploit", false, "Only CVEs with known exploits")
	f.IntVar(&limit, "limit", 0, "Maximum results (default from prefs)")
	f.IntVar(&offset, "offset", 0, "Results to skip")
	f.StringVar(&sortBy, "sort-by", "", "Sort field")
	f.StringVar(&order, "order", "", "Sort order (asc, desc)")
	f.StringVar(&saveAs, "save", "", "Save the filter under this name")
	return cmd
}

func (a *App) newCVECmd() *cobra.Command {
	var details bool

	cmd := &cobra.Command{
		Use:   "cve <id>",
		Short: "Show a single CVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := validation.NormalizeCVEID(args[0])
			if err != nil {
				return err
			}

			return a.run(cmd.Context(), func(ctx context.Context) error {
				var resp json.RawMessage
				if details {
					resp, err = a.exec.CVEDetails(ctx, id)
				} else {
					resp, err = a.exec.GetCVE(ctx, id)
				}
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&details, "details", false, "Include references, products and analysis")
	return cmd
}
