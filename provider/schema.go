package provider

import "google.golang.org/genai"

// ResponseSchema is the structured-output contract sent with every model
// request. The local decoder in validate.go enforces the same fields and is
// the authoritative check.
func ResponseSchema() *genai.Schema {
	pricePoint := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date":  {Type: genai.TypeString, Description: "Date in YYYY-MM-DD format."},
			"price": {Type: genai.TypeNumber, Description: "Simulated price for that day."},
		},
		Required: []string{"date", "price"},
	}

	route := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":           {Type: genai.TypeString, Description: "Unique ID for the route, e.g., JFK-LAX-DL"},
			"origin":       {Type: genai.TypeString, Description: "Origin airport code, e.g., JFK"},
			"destination":  {Type: genai.TypeString, Description: "Destination airport code, e.g., LAX"},
			"airline":      {Type: genai.TypeString, Description: "Airline name, e.g., Delta"},
			"flightCount":  {Type: genai.TypeInteger, Description: "Total number of flights on this route for the period."},
			"averagePrice": {Type: genai.TypeNumber, Description: "The average price for this route over the period."},
			"priceTrend": {
				Type:        genai.TypeArray,
				Description: "Daily price trend for the next 14 days.",
				Items:       pricePoint,
			},
		},
		Required: []string{"id", "origin", "destination", "airline", "flightCount", "averagePrice", "priceTrend"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"kpis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"totalRoutes":          {Type: genai.TypeInteger, Description: "Total unique routes (origin-destination-airline combinations)."},
					"overallAveragePrice":  {Type: genai.TypeNumber, Description: "The average price across all flights and dates."},
					"mostPopularRoute":     {Type: genai.TypeString, Description: "The route with the highest flight count (e.g., JFK-LAX)."},
					"highestDemandAirline": {Type: genai.TypeString, Description: "The airline with the highest total flight count."},
				},
				Required: []string{"totalRoutes", "overallAveragePrice", "mostPopularRoute", "highestDemandAirline"},
			},
			"routes": {
				Type:        genai.TypeArray,
				Description: "List of airline routes with their data.",
				Items:       route,
			},
		},
		Required: []string{"kpis", "routes"},
	}
}
