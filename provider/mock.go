package provider

import (
	"math"
	"math/rand"
	"time"

	"airdemand/internal/analytics"
	"airdemand/models"
)

// SeedRoute is one hardcoded route of the mock roster.
type SeedRoute struct {
	ID          string
	Origin      string
	Destination string
	Airline     string
	FlightCount int
	BasePrice   float64
}

// MockPriceSpread is the maximum distance of a mock price from its base.
const MockPriceSpread = 25

// SeedRoutes is the fixed mock roster: two city pairs, two airlines each.
var SeedRoutes = []SeedRoute{
	{ID: "JFK-LAX-UA", Origin: "JFK", Destination: "LAX", Airline: "United", FlightCount: 120, BasePrice: 410},
	{ID: "JFK-LAX-DL", Origin: "JFK", Destination: "LAX", Airline: "Delta", FlightCount: 95, BasePrice: 425},
	{ID: "SFO-ORD-AA", Origin: "SFO", Destination: "ORD", Airline: "American", FlightCount: 80, BasePrice: 350},
	{ID: "SFO-ORD-UA", Origin: "SFO", Destination: "ORD", Airline: "United", FlightCount: 88, BasePrice: 340},
}

// MockKPIs is the precomputed summary reported for the mock roster. It is
// not recomputed from the generated routes unless deriveKPIs is requested.
var MockKPIs = models.KPISummary{
	TotalRoutes:          4,
	OverallAveragePrice:  385,
	MostPopularRoute:     "JFK-LAX",
	HighestDemandAirline: "United",
}

// GenerateMock builds the mock dataset for the day of now. It never fails.
func GenerateMock(now time.Time, rng *rand.Rand, deriveKPIs bool) models.MarketData {
	routes := make([]models.RouteInfo, 0, len(SeedRoutes))
	for _, seed := range SeedRoutes {
		routes = append(routes, models.RouteInfo{
			ID:           seed.ID,
			Origin:       seed.Origin,
			Destination:  seed.Destination,
			Airline:      seed.Airline,
			FlightCount:  seed.FlightCount,
			AveragePrice: seed.BasePrice,
			PriceTrend:   GenerateTrend(seed.BasePrice, now, rng),
		})
	}

	kpis := MockKPIs
	if deriveKPIs {
		kpis = analytics.ComputeKPIs(routes)
	}
	return models.MarketData{KPIs: kpis, Routes: routes}
}

// GenerateTrend returns TrendDays daily prices starting on the UTC date of
// start, each round(base + U(-25, +25)).
func GenerateTrend(base float64, start time.Time, rng *rand.Rand) []models.PriceDataPoint {
	y, m, d := start.UTC().Date()
	trend := make([]models.PriceDataPoint, models.TrendDays)
	for i := range trend {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, time.UTC)
		trend[i] = models.PriceDataPoint{
			Date:  day.Format(models.DateLayout),
			Price: math.Round(base + (rng.Float64()-0.5)*2*MockPriceSpread),
		}
	}
	return trend
}
