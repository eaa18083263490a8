package analytics

import (
	"sort"
	"strings"

	"airdemand/models"
)

// RankByDemand returns a copy of routes ordered by flightCount, highest first.
// Routes with equal counts keep their original order.
func RankByDemand(routes []models.RouteInfo) []models.RouteInfo {
	out := make([]models.RouteInfo, len(routes))
	copy(out, routes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FlightCount > out[j].FlightCount
	})
	return out
}

// SortColumn names a sortable column of the route table.
type SortColumn string

const (
	SortAirline SortColumn = "airline"
	SortRoute   SortColumn = "route"
	SortDemand  SortColumn = "demand"
	SortPrice   SortColumn = "price"
	SortTrend   SortColumn = "trend"
)

// ParseSortColumn maps a request value onto a column. Unknown values yield
// false and callers keep the provider order.
func ParseSortColumn(s string) (SortColumn, bool) {
	switch col := SortColumn(strings.ToLower(strings.TrimSpace(s))); col {
	case SortAirline, SortRoute, SortDemand, SortPrice, SortTrend:
		return col, true
	default:
		return "", false
	}
}

// SortRoutes returns a stably sorted copy of routes for the table view.
func SortRoutes(routes []models.RouteInfo, col SortColumn, desc bool) []models.RouteInfo {
	out := make([]models.RouteInfo, len(routes))
	copy(out, routes)

	less := func(a, b models.RouteInfo) bool {
		switch col {
		case SortAirline:
			return a.Airline < b.Airline
		case SortRoute:
			return a.RouteKey() < b.RouteKey()
		case SortDemand:
			return a.FlightCount < b.FlightCount
		case SortPrice:
			return a.AveragePrice < b.AveragePrice
		case SortTrend:
			return PriceChange(a.PriceTrend).Percent < PriceChange(b.PriceTrend).Percent
		}
		return false
	}

	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
