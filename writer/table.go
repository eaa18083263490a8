package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/jszwec/csvutil"

	"airdemand/internal/analytics"
	"airdemand/models"
)

// TableRow is one line of the route details table.
type TableRow struct {
	Airline        string              `csv:"airline"`
	Origin         string              `csv:"origin"`
	Destination    string              `csv:"destination"`
	FlightCount    int                 `csv:"flight_count"`
	AveragePrice   float64             `csv:"average_price"`
	TrendPercent   float64             `csv:"trend_percent"`
	TrendDirection analytics.Direction `csv:"trend_direction"`
	TrendPolarity  analytics.Polarity  `csv:"trend_polarity"`
}

// Rows converts routes into table rows, keeping their order. The trend
// percentage is rounded to one decimal as displayed.
func Rows(routes []models.RouteInfo) []TableRow {
	rows := make([]TableRow, 0, len(routes))
	for _, r := range routes {
		change := analytics.PriceChange(r.PriceTrend)
		rows = append(rows, TableRow{
			Airline:        r.Airline,
			Origin:         r.Origin,
			Destination:    r.Destination,
			FlightCount:    r.FlightCount,
			AveragePrice:   r.AveragePrice,
			TrendPercent:   math.Round(change.Percent*10) / 10,
			TrendDirection: change.Direction,
			TrendPolarity:  change.Polarity,
		})
	}
	return rows
}

// WriteCSV encodes the route table with a header line.
func WriteCSV(w io.Writer, routes []models.RouteInfo) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	rows := Rows(routes)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(TableRow{}); err != nil {
			return fmt.Errorf("failed to encode csv header: %w", err)
		}
	} else if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode csv rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// WriteTable renders the route table and KPI block for a terminal.
func WriteTable(w io.Writer, data models.MarketData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Total Routes Tracked\t%d\n", data.KPIs.TotalRoutes)
	fmt.Fprintf(tw, "Overall Average Price\t$%.2f\n", data.KPIs.OverallAveragePrice)
	fmt.Fprintf(tw, "Most Popular Route\t%s\n", data.KPIs.MostPopularRoute)
	fmt.Fprintf(tw, "Highest Demand Airline\t%s\n", data.KPIs.HighestDemandAirline)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "AIRLINE\tROUTE\tDEMAND (FLIGHTS)\tAVG. PRICE\t14-DAY TREND")
	for _, row := range Rows(data.Routes) {
		fmt.Fprintf(tw, "%s\t%s -> %s\t%d\t$%.2f\t%s\n",
			row.Airline, row.Origin, row.Destination, row.FlightCount, row.AveragePrice, trendLabel(row))
	}
	return tw.Flush()
}

func trendLabel(row TableRow) string {
	marker := ""
	switch row.TrendPolarity {
	case analytics.PolarityUnfavorable:
		marker = "▲ "
	case analytics.PolarityFavorable:
		marker = "▼ "
	}
	return fmt.Sprintf("%s%.1f%%", marker, row.TrendPercent)
}
