package models

import "time"

// DefaultStatus is the risk label given to records whose source row has no
// recognizable status column.
const DefaultStatus = "baixo risco"

// Field is a single header/value pair of a source row.
type Field struct {
	Key   string
	Value string
}

// RawRow is one data line of the published report, keyed by whatever header
// names the source used. Pairs keep the source column order, duplicates
// included.
type RawRow []Field

// NewRawRow zips a header line with a data line. Values beyond the header are
// dropped and missing trailing values are left out.
func NewRawRow(headers, values []string) RawRow {
	n := len(values)
	if len(headers) < n {
		n = len(headers)
	}
	row := make(RawRow, 0, n)
	for i := 0; i < n; i++ {
		row = append(row, Field{Key: headers[i], Value: values[i]})
	}
	return row
}

// Keys returns the header names of the row in source order.
func (r RawRow) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// CanonicalRecord is one normalized reporting line item.
type CanonicalRecord struct {
	ID         int     `json:"id" csv:"id"`
	Etapa      string  `json:"etapa" csv:"etapa"`
	Servico    string  `json:"servico" csv:"servico"`
	Progresso  float64 `json:"progresso" csv:"progresso"`
	Inicio     string  `json:"inicio" csv:"inicio"`
	Termino    string  `json:"termino" csv:"termino"`
	Fornecedor string  `json:"fornecedor" csv:"fornecedor"`
	Status     string  `json:"status" csv:"status"`
}

// Metrics summarizes a record set for the dashboard cards.
type Metrics struct {
	AverageProgress float64 `json:"average_progress"`
	HighRiskCount   int     `json:"high_risk_count"`
	CompletedCount  int     `json:"completed_count"`
	TotalCount      int     `json:"total_count"`
}

// Phase is the ingestion state machine position.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseLoading       Phase = "loading"
	PhaseReady         Phase = "ready"
	PhaseReadyFallback Phase = "ready_fallback"
)

// DatasetState is what the renderer reads: the current records plus the
// flags describing how they were obtained.
type DatasetState struct {
	Records       []CanonicalRecord `json:"records"`
	Loading       bool              `json:"loading"`
	Error         string            `json:"error,omitempty"`
	UsingFallback bool              `json:"using_fallback"`
	LastUpdate    *time.Time        `json:"last_update,omitempty"`
	Phase         Phase             `json:"phase"`
	AttemptID     string            `json:"attempt_id,omitempty"`
	Source        string            `json:"source,omitempty"`
}
