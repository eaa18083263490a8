package analytics

import "airdemand/models"

// Direction classifies the sign of a price change over the trend window.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionNeutral  Direction = "neutral"
)

// Polarity is the consumer-facing reading of a Direction: a falling price is
// good news for the traveller, a rising one is not.
type Polarity string

const (
	PolarityFavorable   Polarity = "favorable"
	PolarityUnfavorable Polarity = "unfavorable"
	PolarityNeutral     Polarity = "neutral"
)

// Polarity maps a price direction onto its display polarity.
func (d Direction) Polarity() Polarity {
	switch d {
	case DirectionIncrease:
		return PolarityUnfavorable
	case DirectionDecrease:
		return PolarityFavorable
	default:
		return PolarityNeutral
	}
}

// Change is the percentage movement between the first and last trend points.
type Change struct {
	Percent   float64   `json:"percent"`
	Direction Direction `json:"direction"`
	Polarity  Polarity  `json:"polarity"`
}

// PriceChange computes (last-first)/first*100 over the trend. Trends with
// fewer than two points, or a zero starting price, are neutral.
func PriceChange(trend []models.PriceDataPoint) Change {
	if len(trend) < 2 {
		return neutralChange()
	}
	first := trend[0].Price
	last := trend[len(trend)-1].Price
	if first == 0 {
		return neutralChange()
	}

	pct := (last - first) / first * 100
	dir := DirectionNeutral
	switch {
	case pct > 0:
		dir = DirectionIncrease
	case pct < 0:
		dir = DirectionDecrease
	}
	return Change{Percent: pct, Direction: dir, Polarity: dir.Polarity()}
}

func neutralChange() Change {
	return Change{Percent: 0, Direction: DirectionNeutral, Polarity: PolarityNeutral}
}

// RouteChanges returns the price change for every route keyed by route ID.
func RouteChanges(routes []models.RouteInfo) map[string]Change {
	out := make(map[string]Change, len(routes))
	for _, r := range routes {
		out[r.ID] = PriceChange(r.PriceTrend)
	}
	return out
}
