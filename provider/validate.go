package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"airdemand/internal/analytics"
	"airdemand/models"
)

// The wire types mirror ResponseSchema with pointer fields so that a missing
// key is distinguishable from a zero value.
type wireMarketData struct {
	KPIs   *wireKPIs   `json:"kpis" validate:"required"`
	Routes []wireRoute `json:"routes" validate:"required,min=1,dive"`
}

type wireKPIs struct {
	TotalRoutes          *int     `json:"totalRoutes" validate:"required,min=0"`
	OverallAveragePrice  *float64 `json:"overallAveragePrice" validate:"required,min=0"`
	MostPopularRoute     *string  `json:"mostPopularRoute" validate:"required"`
	HighestDemandAirline *string  `json:"highestDemandAirline" validate:"required"`
}

type wireRoute struct {
	ID           *string     `json:"id" validate:"required"`
	Origin       *string     `json:"origin" validate:"required"`
	Destination  *string     `json:"destination" validate:"required"`
	Airline      *string     `json:"airline" validate:"required"`
	FlightCount  *int        `json:"flightCount" validate:"required,min=0"`
	AveragePrice *float64    `json:"averagePrice" validate:"required,min=0"`
	PriceTrend   []wirePoint `json:"priceTrend" validate:"required,dive"`
}

type wirePoint struct {
	Date  *string  `json:"date" validate:"required,datetime=2006-01-02"`
	Price *float64 `json:"price" validate:"required,min=0"`
}

// ValidationOptions enables checks beyond the schema's required fields.
type ValidationOptions struct {
	// AllowIrregularTrend skips the check that every route carries exactly
	// TrendDays contiguous days.
	AllowIrregularTrend bool
	// VerifyKPIs requires mostPopularRoute and highestDemandAirline to be
	// derivable from the routes.
	VerifyKPIs bool
}

var validate = validator.New()

// DecodeMarketData parses model output and rejects, never coerces, anything
// that does not satisfy the schema. totalRoutes must always match the number
// of routes, and trends must cover TrendDays contiguous days unless
// AllowIrregularTrend is set.
func DecodeMarketData(text string, opts ValidationOptions) (*models.MarketData, error) {
	raw := []byte(strings.TrimSpace(text))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, newGenerationError(ReasonMalformed, err)
	}
	for _, key := range []string{"routes", "kpis"} {
		v, ok := top[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, newGenerationError(ReasonInvalidStructure, fmt.Errorf("%w: missing %q", ErrInvalidStructure, key))
		}
	}

	var wire wireMarketData
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, newGenerationError(ReasonMalformed, err)
	}
	if err := validate.Struct(wire); err != nil {
		return nil, newGenerationError(ReasonValidation, err)
	}

	data := wire.toModel()

	var problems []error
	if opts.VerifyKPIs {
		problems = append(problems, analytics.VerifyKPIs(*data)...)
	} else if data.KPIs.TotalRoutes != len(data.Routes) {
		problems = append(problems, fmt.Errorf("totalRoutes is %d but %d routes were returned", data.KPIs.TotalRoutes, len(data.Routes)))
	}
	if !opts.AllowIrregularTrend {
		for _, r := range data.Routes {
			if err := CheckTrend(r.PriceTrend); err != nil {
				problems = append(problems, fmt.Errorf("route %s: %w", r.ID, err))
			}
		}
	}
	if len(problems) > 0 {
		return nil, newGenerationError(ReasonValidation, errors.Join(problems...))
	}
	return data, nil
}

// CheckTrend verifies a trend covers TrendDays contiguous calendar days.
func CheckTrend(trend []models.PriceDataPoint) error {
	if len(trend) != models.TrendDays {
		return fmt.Errorf("price trend has %d entries, want %d", len(trend), models.TrendDays)
	}
	var prev time.Time
	for i, p := range trend {
		day, err := time.Parse(models.DateLayout, p.Date)
		if err != nil {
			return fmt.Errorf("price trend entry %d: %w", i, err)
		}
		if i > 0 && !day.Equal(prev.AddDate(0, 0, 1)) {
			return fmt.Errorf("price trend entry %d (%s) does not follow %s", i, p.Date, prev.Format(models.DateLayout))
		}
		prev = day
	}
	return nil
}

func (w wireMarketData) toModel() *models.MarketData {
	data := &models.MarketData{
		KPIs: models.KPISummary{
			TotalRoutes:          *w.KPIs.TotalRoutes,
			OverallAveragePrice:  *w.KPIs.OverallAveragePrice,
			MostPopularRoute:     *w.KPIs.MostPopularRoute,
			HighestDemandAirline: *w.KPIs.HighestDemandAirline,
		},
		Routes: make([]models.RouteInfo, 0, len(w.Routes)),
	}
	for _, r := range w.Routes {
		route := models.RouteInfo{
			ID:           *r.ID,
			Origin:       *r.Origin,
			Destination:  *r.Destination,
			Airline:      *r.Airline,
			FlightCount:  *r.FlightCount,
			AveragePrice: *r.AveragePrice,
			PriceTrend:   make([]models.PriceDataPoint, 0, len(r.PriceTrend)),
		}
		for _, p := range r.PriceTrend {
			route.PriceTrend = append(route.PriceTrend, models.PriceDataPoint{Date: *p.Date, Price: *p.Price})
		}
		data.Routes = append(data.Routes, route)
	}
	return data
}
