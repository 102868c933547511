package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"obra-dashboard/internal/models"

	"golang.org/x/text/unicode/norm"
)

// FieldAliases lists, for one canonical field, the header substrings that
// identify its column. Order is rank order.
type FieldAliases struct {
	Field   string
	Aliases []string
}

// Canonical field names, as used in JSON and in the alias table.
const (
	FieldEtapa      = "etapa"
	FieldServico    = "servico"
	FieldProgresso  = "progresso"
	FieldInicio     = "inicio"
	FieldTermino    = "termino"
	FieldFornecedor = "fornecedor"
	FieldStatus     = "status"
)

// DefaultAliases covers the Portuguese and English headers the report has
// been published with. Aliases must be lowercase.
var DefaultAliases = []FieldAliases{
	{Field: FieldEtapa, Aliases: []string{"etapa", "fase", "stage"}},
	{Field: FieldServico, Aliases: []string{"serviço", "servico", "service", "atividade", "tarefa"}},
	{Field: FieldProgresso, Aliases: []string{"progresso", "progress", "%"}},
	{Field: FieldInicio, Aliases: []string{"início", "inicio", "start", "data inicio"}},
	{Field: FieldTermino, Aliases: []string{"término", "termino", "end", "fim", "data fim"}},
	{Field: FieldFornecedor, Aliases: []string{"fornecedor", "supplier", "responsável", "responsavel"}},
	{Field: FieldStatus, Aliases: []string{"status", "risco", "risk"}},
}

// leadingNumber matches the numeric prefix of a value such as "45.5%".
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// SchemaNormalizer maps source rows onto CanonicalRecord.
type SchemaNormalizer struct {
	aliases map[string][]string
	order   []FieldAliases
}

// NewSchemaNormalizer creates a normalizer over the given alias table. A nil
// table means DefaultAliases.
func NewSchemaNormalizer(table []FieldAliases) *SchemaNormalizer {
	if table == nil {
		table = DefaultAliases
	}
	sn := &SchemaNormalizer{
		aliases: make(map[string][]string, len(table)),
		order:   make([]FieldAliases, 0, len(table)),
	}
	for _, fa := range table {
		lowered := make([]string, len(fa.Aliases))
		for i, a := range fa.Aliases {
			lowered[i] = foldHeader(a)
		}
		sn.aliases[fa.Field] = lowered
		sn.order = append(sn.order, FieldAliases{Field: fa.Field, Aliases: lowered})
	}
	return sn
}

// Aliases returns the alias table in field order.
func (sn *SchemaNormalizer) Aliases() []FieldAliases {
	out := make([]FieldAliases, len(sn.order))
	for i, fa := range sn.order {
		out[i] = FieldAliases{Field: fa.Field, Aliases: append([]string(nil), fa.Aliases...)}
	}
	return out
}

// Normalize converts a batch of rows. The i-th row gets id i+1.
func (sn *SchemaNormalizer) Normalize(rows []models.RawRow) []models.CanonicalRecord {
	records := make([]models.CanonicalRecord, len(rows))
	for i, row := range rows {
		records[i] = sn.NormalizeRow(row, i)
	}
	return records
}

// NormalizeRow converts the row found at position index of its batch.
func (sn *SchemaNormalizer) NormalizeRow(row models.RawRow, index int) models.CanonicalRecord {
	status := sn.lookup(row, FieldStatus)
	if status == "" {
		status = models.DefaultStatus
	}
	return models.CanonicalRecord{
		ID:         index + 1,
		Etapa:      sn.lookup(row, FieldEtapa),
		Servico:    sn.lookup(row, FieldServico),
		Progresso:  ParseProgress(sn.lookup(row, FieldProgresso)),
		Inicio:     sn.lookup(row, FieldInicio),
		Termino:    sn.lookup(row, FieldTermino),
		Fornecedor: sn.lookup(row, FieldFornecedor),
		Status:     status,
	}
}

// ResolveColumns reports the header each field resolves to for a row with
// the given keys. Unresolved fields have an empty Header.
func (sn *SchemaNormalizer) ResolveColumns(keys []string) []models.ColumnMapping {
	mappings := make([]models.ColumnMapping, 0, len(sn.order))
	for _, fa := range sn.order {
		m := models.ColumnMapping{Field: fa.Field, Aliases: append([]string(nil), fa.Aliases...)}
		if idx := matchKey(keys, fa.Aliases); idx >= 0 {
			m.Header = keys[idx]
		}
		mappings = append(mappings, m)
	}
	return mappings
}

func (sn *SchemaNormalizer) lookup(row models.RawRow, field string) string {
	aliases := sn.aliases[field]
	for _, f := range row {
		if containsAny(foldHeader(f.Key), aliases) {
			return f.Value
		}
	}
	return ""
}

func matchKey(keys []string, aliases []string) int {
	for i, k := range keys {
		if containsAny(foldHeader(k), aliases) {
			return i
		}
	}
	return -1
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// foldHeader composes accents and lowercases, so "INÍCIO" typed with a
// combining acute still contains "início".
func foldHeader(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// ParseProgress reads a percentage that may use a comma as decimal separator
// and may carry a trailing unit ("45,5%"). Anything unparsable is 0.
func ParseProgress(raw string) float64 {
	s := strings.Replace(strings.TrimSpace(raw), ",", ".", 1)
	num := leadingNumber.FindString(s)
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
