package models

import "time"

// RecordView is a record plus the render-time interpretation of its fields
type RecordView struct {
	CanonicalRecord
	RiskLevel         string  `json:"risk_level"`
	InicioDisplay     string  `json:"inicio_display"`
	TerminoDisplay    string  `json:"termino_display"`
	BarWidth          float64 `json:"bar_width"`
	SupplierUndefined bool    `json:"supplier_undefined"`
}

// DatasetResponse is returned by /api/dataset and /api/refresh
type DatasetResponse struct {
	Records       []RecordView `json:"records"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
	UsingFallback bool         `json:"using_fallback"`
	LastUpdate    *time.Time   `json:"last_update,omitempty"`
	Phase         Phase        `json:"phase"`
	AttemptID     string       `json:"attempt_id,omitempty"`
	Source        string       `json:"source,omitempty"`
	SourceLabel   string       `json:"source_label"`
	Metrics       Metrics      `json:"metrics"`
}

// ColumnMapping tells which source header a canonical field resolved to
type ColumnMapping struct {
	Field   string   `json:"field"`
	Aliases []string `json:"aliases"`
	Header  string   `json:"header,omitempty"`
}

// SchemaResponse is returned by /api/schema
type SchemaResponse struct {
	Headers  []string        `json:"headers"`
	Mappings []ColumnMapping `json:"mappings"`
}

// ErrorResponse is the JSON body of a failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}
