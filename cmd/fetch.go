package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airdemand/internal/analytics"
	"airdemand/models"
	"airdemand/provider"
	"airdemand/writer"
)

// fetchOutput is the JSON document printed by fetch.
type fetchOutput struct {
	RequestID string             `json:"request_id"`
	Query     models.Query       `json:"query"`
	Source    string             `json:"source"`
	Data      *models.MarketData `json:"data"`
	Derived   analytics.Derived  `json:"derived"`
}

func newFetchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   FetchCmdName,
		Short: FetchCmdShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(v.GetString("format"))
			switch format {
			case "json", "csv", "table":
			default:
				return fmt.Errorf("unsupported format %q (want json, csv or table)", format)
			}

			var (
				col     analytics.SortColumn
				sorting bool
			)
			if s := v.GetString("sort"); s != "" {
				if col, sorting = analytics.ParseSortColumn(s); !sorting {
					return fmt.Errorf("unsupported sort column %q", s)
				}
			}

			a, err := newApp(cmd.Context(), v, "stderr")
			if err != nil {
				return err
			}
			defer a.close()

			q, err := models.NewQuery(args[0], args[1], a.cfg.Query.NormalizeICAO)
			if err != nil {
				return err
			}

			res, err := a.session.Search(cmd.Context(), q)
			if err != nil {
				return err
			}

			if sorting {
				sorted := *res.Data
				sorted.Routes = analytics.SortRoutes(res.Data.Routes, col, v.GetBool("desc"))
				res.Data = &sorted
			}
			return render(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().String("format", "table", "output format: json, csv or table")
	cmd.Flags().String("sort", "", "sort routes by airline, route, demand, price or trend")
	cmd.Flags().Bool("desc", false, "sort in descending order")
	for _, name := range []string{"format", "sort", "desc"} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func render(w io.Writer, format string, res *provider.Result) error {
	switch format {
	case "csv":
		return writer.WriteCSV(w, res.Data.Routes)
	case "table":
		fmt.Fprintf(w, "%s (%s data, request %s)\n\n", res.Query.Origin+" -> "+res.Query.Destination, res.Source, res.RequestID)
		return writer.WriteTable(w, *res.Data)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fetchOutput{
			RequestID: res.RequestID,
			Query:     res.Query,
			Source:    res.Source,
			Data:      res.Data,
			Derived:   analytics.Derive(*res.Data),
		})
	}
}
