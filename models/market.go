package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by price trend points.
const DateLayout = "2006-01-02"

// TrendDays is the length of the simulated pricing window.
const TrendDays = 14

// ErrEmptyAirportCode is returned by NewQuery when either code is blank.
var ErrEmptyAirportCode = errors.New("origin and destination are required")

// PriceDataPoint is one day's simulated price for a route/airline combination.
type PriceDataPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Time parses the point's date. The zero time is returned for malformed dates.
func (p PriceDataPoint) Time() time.Time {
	t, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RouteInfo is one airline's service between an origin and destination.
type RouteInfo struct {
	ID           string           `json:"id"`
	Origin       string           `json:"origin"`
	Destination  string           `json:"destination"`
	Airline      string           `json:"airline"`
	FlightCount  int              `json:"flightCount"`
	AveragePrice float64          `json:"averagePrice"`
	PriceTrend   []PriceDataPoint `json:"priceTrend"`
}

// RouteKey returns the "ORIGIN-DEST" form used by the KPI summary.
func (r RouteInfo) RouteKey() string {
	return r.Origin + "-" + r.Destination
}

// KPISummary aggregates metrics across all routes of a result set.
type KPISummary struct {
	TotalRoutes          int     `json:"totalRoutes"`
	OverallAveragePrice  float64 `json:"overallAveragePrice"`
	MostPopularRoute     string  `json:"mostPopularRoute"`
	HighestDemandAirline string  `json:"highestDemandAirline"`
}

// MarketData is the dataset produced for a single query. A fresh value is
// created per query and never merged with earlier results.
type MarketData struct {
	KPIs   KPISummary  `json:"kpis"`
	Routes []RouteInfo `json:"routes"`
}

// Query is a normalized origin/destination pair.
type Query struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// NewQuery trims and uppercases both codes. When icao is set, 4-letter US
// ICAO codes ("KJFK") are reduced to their 3-letter form ("JFK").
func NewQuery(origin, destination string, icao bool) (Query, error) {
	q := Query{
		Origin:      NormalizeAirportCode(origin, icao),
		Destination: NormalizeAirportCode(destination, icao),
	}
	if q.Origin == "" || q.Destination == "" {
		return Query{}, ErrEmptyAirportCode
	}
	return q, nil
}

// NormalizeAirportCode uppercases a free-text airport code. Codes are not
// otherwise validated.
func NormalizeAirportCode(code string, icao bool) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if icao && len(upper) == 4 && strings.HasPrefix(upper, "K") {
		return upper[1:]
	}
	return upper
}

func (q Query) String() string {
	return q.Origin + "-" + q.Destination
}
