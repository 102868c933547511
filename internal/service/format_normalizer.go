package service

import (
	"strings"
	"time"

	"obra-dashboard/internal/analysis"
	"obra-dashboard/internal/models"
)

// EmptyDisplay stands in for a value the source left blank.
const EmptyDisplay = "—"

// placeholderSupplier marks a work item whose supplier is still to be chosen.
const placeholderSupplier = "definir"

// FormatNormalizer turns canonical records into what the renderer shows.
// Dates stay raw in the records and are only interpreted here.
type FormatNormalizer struct {
	dateFormats   []string
	displayFormat string
}

// NewFormatNormalizer creates a normalizer rendering dates as dd/mm/yyyy
func NewFormatNormalizer() *FormatNormalizer {
	return &FormatNormalizer{
		dateFormats: []string{
			"2006-01-02",          // ISO: 2024-01-15
			time.RFC3339,          // With time
			"2006-01-02 15:04:05", // SQL datetime
			"2006-01-02T15:04:05", // Sheets export without zone
			"2006/01/02",          // Alt ISO
			"02/01/2006",          // pt-BR: 15/01/2024
		},
		displayFormat: "02/01/2006",
	}
}

// FormatDate renders a raw date for display. Values that match no known
// layout are returned unchanged.
func (fn *FormatNormalizer) FormatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return EmptyDisplay
	}
	for _, format := range fn.dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.Format(fn.displayFormat)
		}
	}
	return value
}

// BarWidth is the progress bar fill, capped at 100. Negative progress is
// drawn empty.
func BarWidth(progress float64) float64 {
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return progress
}

// SupplierUndefined reports whether the supplier is the placeholder name.
func SupplierUndefined(supplier string) bool {
	return strings.EqualFold(strings.TrimSpace(supplier), placeholderSupplier)
}

// View builds the render model of one record.
func (fn *FormatNormalizer) View(r models.CanonicalRecord) models.RecordView {
	return models.RecordView{
		CanonicalRecord:   r,
		RiskLevel:         analysis.RiskLevel(r.Status),
		InicioDisplay:     fn.FormatDate(r.Inicio),
		TerminoDisplay:    fn.FormatDate(r.Termino),
		BarWidth:          BarWidth(r.Progresso),
		SupplierUndefined: SupplierUndefined(r.Fornecedor),
	}
}

// Views builds the render model of a record set, keeping order.
func (fn *FormatNormalizer) Views(records []models.CanonicalRecord) []models.RecordView {
	views := make([]models.RecordView, len(records))
	for i, r := range records {
		views[i] = fn.View(r)
	}
	return views
}

// SourceLabel is the badge text telling live data from sample data.
func SourceLabel(s models.DatasetState) string {
	switch {
	case s.Loading:
		return "Atualizando…"
	case s.UsingFallback:
		return "Offline (exemplo)"
	case s.Phase == models.PhaseReady && strings.HasPrefix(s.Source, "sql:"):
		return "Banco de dados"
	case s.Phase == models.PhaseReady:
		return "Google Sheets"
	default:
		return "Carregando…"
	}
}
