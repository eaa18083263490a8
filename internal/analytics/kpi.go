package analytics

import (
	"fmt"

	"airdemand/models"
)

// ComputeKPIs derives the summary block from a set of routes. The most
// popular route and highest demand airline resolve ties by first occurrence.
func ComputeKPIs(routes []models.RouteInfo) models.KPISummary {
	kpis := models.KPISummary{TotalRoutes: len(routes)}
	if len(routes) == 0 {
		return kpis
	}

	var sum float64
	best := 0
	airlineTotals := make(map[string]int)
	var airlineOrder []string
	for i, r := range routes {
		sum += r.AveragePrice
		if r.FlightCount > routes[best].FlightCount {
			best = i
		}
		if _, seen := airlineTotals[r.Airline]; !seen {
			airlineOrder = append(airlineOrder, r.Airline)
		}
		airlineTotals[r.Airline] += r.FlightCount
	}

	kpis.OverallAveragePrice = sum / float64(len(routes))
	kpis.MostPopularRoute = routes[best].RouteKey()

	top := airlineOrder[0]
	for _, airline := range airlineOrder[1:] {
		if airlineTotals[airline] > airlineTotals[top] {
			top = airline
		}
	}
	kpis.HighestDemandAirline = top
	return kpis
}

// VerifyKPIs reports every way the KPI block disagrees with its routes. Ties
// are accepted: any route or airline sharing the maximum count is valid.
func VerifyKPIs(data models.MarketData) []error {
	var problems []error
	if data.KPIs.TotalRoutes != len(data.Routes) {
		problems = append(problems, fmt.Errorf("totalRoutes is %d but %d routes were returned", data.KPIs.TotalRoutes, len(data.Routes)))
	}
	if len(data.Routes) == 0 {
		return problems
	}

	maxCount := -1
	for _, r := range data.Routes {
		if r.FlightCount > maxCount {
			maxCount = r.FlightCount
		}
	}
	popular := false
	for _, r := range data.Routes {
		if r.FlightCount == maxCount && r.RouteKey() == data.KPIs.MostPopularRoute {
			popular = true
			break
		}
	}
	if !popular {
		problems = append(problems, fmt.Errorf("mostPopularRoute %q is not the route with the highest flight count", data.KPIs.MostPopularRoute))
	}

	totals := make(map[string]int)
	maxTotal := -1
	for _, r := range data.Routes {
		totals[r.Airline] += r.FlightCount
		if totals[r.Airline] > maxTotal {
			maxTotal = totals[r.Airline]
		}
	}
	if total, ok := totals[data.KPIs.HighestDemandAirline]; !ok || total != maxTotal {
		problems = append(problems, fmt.Errorf("highestDemandAirline %q does not have the highest total flight count", data.KPIs.HighestDemandAirline))
	}
	return problems
}
