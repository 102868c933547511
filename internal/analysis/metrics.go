package analysis

import (
	"math"
	"strings"
	"unicode"

	"obra-dashboard/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Risk levels derived from the free-text status column.
const (
	RiskHigh = "high"
	RiskMid  = "mid"
	RiskLow  = "low"
)

const (
	highRiskMarker = "alto"
	midRiskMarker  = "medio"
)

// Aggregate computes the dashboard card values for records.
func Aggregate(records []models.CanonicalRecord) models.Metrics {
	m := models.Metrics{TotalCount: len(records)}
	if len(records) == 0 {
		return m
	}

	sum := 0.0
	for _, r := range records {
		sum += r.Progresso
		if IsHighRisk(r.Status) {
			m.HighRiskCount++
		}
		if r.Progresso >= 100 {
			m.CompletedCount++
		}
	}
	m.AverageProgress = roundTo(sum/float64(len(records)), 1)
	return m
}

// IsHighRisk reports whether status carries the high-risk marker.
func IsHighRisk(status string) bool {
	return strings.Contains(strings.ToLower(status), highRiskMarker)
}

// RiskLevel classifies a status label. "médio" and "medio" are both mid;
// anything that is neither high nor mid is low.
func RiskLevel(status string) string {
	if IsHighRisk(status) {
		return RiskHigh
	}
	if strings.Contains(stripAccents(status), midRiskMarker) {
		return RiskMid
	}
	return RiskLow
}

// stripAccents lowercases s and removes diacritics
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		runes.Map(unicode.ToLower))
	result, _, _ := transform.String(t, s)
	return result
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
