package provider

import (
	"fmt"

	"airdemand/models"
)

const promptTemplate = `You are an expert airline market data analyst and simulator.
Generate a realistic but fictional market demand and pricing dataset for flights between %[1]s and %[2]s for the next %[3]d days, starting %[4]s.
Include data for 2-4 major competing airlines on this route.
The data should reflect typical supply/demand dynamics, with some price variation between airlines and over time.
Ensure the output is a valid JSON object that strictly adheres to the provided schema. Do not add any extra text or explanations outside the JSON object.

Route: %[1]s to %[2]s
Timeframe: Next %[3]d days
Airlines: Include major US carriers like United, Delta, American, etc.
`

// BuildPrompt renders the instruction sent to the model for q.
func BuildPrompt(q models.Query, today string) string {
	return fmt.Sprintf(promptTemplate, q.Origin, q.Destination, models.TrendDays, today)
}
