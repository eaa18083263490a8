package metrics

import (
	"strings"

	"airdemand/logger"
)

// rateLimitMarkers are substrings the model API uses when it throttles a
// caller or a quota is exhausted.
var rateLimitMarkers = []string{
	"resource_exhausted",
	"resource exhausted",
	"too many requests",
	"rate limit",
	"quota",
	"error 429",
	"code 429",
	" 429 ",
}

// DetectRateLimit reports whether an upstream error message signals throttling.
func DetectRateLimit(msg string) bool {
	lower := " " + strings.ToLower(msg) + " "
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ReportRateLimited records an upstream throttling event as a counter metric
// and a warning.
func ReportRateLimited(log *logger.Log, source, query string) {
	fields := logger.Fields{
		"source": source,
		"query":  query,
	}
	EmitMetric(log, "provider", "upstream_rate_limited", int64(1), "counter", fields)
	log.WithComponent("provider").WithFields(fields).Warn("upstream rate limit exceeded")
}
