package service

import (
	"math"
	"strconv"
	"strings"

	"obra-dashboard/internal/models"
)

// FieldProfile holds quality metrics for one canonical field
type FieldProfile struct {
	Field           string  `json:"field"`
	TotalRows       int     `json:"total_rows"`
	FilledRows      int     `json:"filled_rows"`
	MissingRate     float64 `json:"missing_rate"`
	DistinctCount   int     `json:"distinct_count"`
	UniquenessRatio float64 `json:"uniqueness_ratio"`
	Entropy         float64 `json:"entropy"`
	QualityScore    float64 `json:"quality_score"` // 0-1
}

// idealEntropy is the value spread, in bits, that scores best
const idealEntropy = 4.0

// ProfileRecords profiles every canonical field of records, in alias table
// order.
func ProfileRecords(records []models.CanonicalRecord) []FieldProfile {
	profiles := make([]FieldProfile, 0, len(DefaultAliases))
	for _, fa := range DefaultAliases {
		profiles = append(profiles, profileField(records, fa.Field))
	}
	return profiles
}

func profileField(records []models.CanonicalRecord, field string) FieldProfile {
	profile := FieldProfile{Field: field, TotalRows: len(records)}

	counts := make(map[string]int)
	for _, r := range records {
		value := fieldValue(r, field)
		if isMissing(field, value) {
			continue
		}
		profile.FilledRows++
		counts[value]++
	}
	profile.DistinctCount = len(counts)

	if profile.TotalRows > 0 {
		profile.MissingRate = float64(profile.TotalRows-profile.FilledRows) / float64(profile.TotalRows)
	}
	if profile.FilledRows > 0 {
		profile.UniquenessRatio = float64(profile.DistinctCount) / float64(profile.FilledRows)
	}
	profile.Entropy = entropy(counts, profile.FilledRows)
	profile.QualityScore = qualityScore(profile)
	return profile
}

func fieldValue(r models.CanonicalRecord, field string) string {
	switch field {
	case FieldEtapa:
		return r.Etapa
	case FieldServico:
		return r.Servico
	case FieldProgresso:
		return strconv.FormatFloat(r.Progresso, 'f', -1, 64)
	case FieldInicio:
		return r.Inicio
	case FieldTermino:
		return r.Termino
	case FieldFornecedor:
		return r.Fornecedor
	case FieldStatus:
		return r.Status
	}
	return ""
}

func isMissing(field, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", EmptyDisplay, "null", "none":
		return true
	}
	return field == FieldFornecedor && v == placeholderSupplier
}

// entropy computes the Shannon entropy of the value counts
func entropy(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	e := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		e -= p * math.Log2(p)
	}
	return e
}

func qualityScore(p FieldProfile) float64 {
	if p.TotalRows == 0 {
		return 0
	}
	score := 1.0 - p.MissingRate

	penalty := math.Abs(p.Entropy-idealEntropy) / 10.0
	score *= math.Max(0.5, 1.0-penalty)

	return math.Max(0, math.Min(1, score))
}
