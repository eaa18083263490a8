package analytics

import "airdemand/models"

// SeriesRow is one date of the price trend chart with a price per airline.
type SeriesRow struct {
	Date   string             `json:"date"`
	Prices map[string]float64 `json:"prices"`
}

// TrendSeries pivots route trends into chart rows. The first route's dates
// define the x axis; routes missing a date simply have no value for it.
func TrendSeries(routes []models.RouteInfo) []SeriesRow {
	if len(routes) == 0 {
		return nil
	}

	rows := make([]SeriesRow, 0, len(routes[0].PriceTrend))
	for _, pt := range routes[0].PriceTrend {
		row := SeriesRow{Date: pt.Date, Prices: make(map[string]float64, len(routes))}
		for _, r := range routes {
			for _, p := range r.PriceTrend {
				if p.Date == pt.Date {
					row.Prices[r.Airline] = p.Price
					break
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Derived bundles every metric the presentation layer computes from a result.
type Derived struct {
	Changes map[string]Change  `json:"changes"`
	Ranking []models.RouteInfo `json:"ranking"`
	Series  []SeriesRow        `json:"series"`
}

// Derive computes the render-time metrics for a dataset.
func Derive(data models.MarketData) Derived {
	return Derived{
		Changes: RouteChanges(data.Routes),
		Ranking: RankByDemand(data.Routes),
		Series:  TrendSeries(data.Routes),
	}
}
