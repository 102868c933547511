package service

import "obra-dashboard/internal/models"

// FallbackMessage is shown to users whenever the fallback dataset is in use.
const FallbackMessage = "Não foi possível carregar os dados da planilha. Exibindo dados de exemplo."

// fallbackRecords is the last known report. Never hand it out directly.
var fallbackRecords = [...]models.CanonicalRecord{
	{ID: 1, Etapa: "Muro divisa", Servico: "Finalizar alvenaria", Progresso: 70.25, Inicio: "2026-02-20", Termino: "2026-03-06", Fornecedor: "Sérgio", Status: "Alto risco"},
	{ID: 2, Etapa: "Muro divisa", Servico: "Reboco Alvenaria", Progresso: 16.25, Inicio: "2026-03-09", Termino: "2026-03-20", Fornecedor: "Sérgio", Status: "médio risco"},
	{ID: 3, Etapa: "Muro divisa", Servico: "Requadros de vigas", Progresso: 72.25, Inicio: "2026-02-26", Termino: "2026-03-16", Fornecedor: "Sérgio", Status: "baixo risco"},
	{ID: 4, Etapa: "Piscina", Servico: "Hidráulica", Progresso: 0, Inicio: "2026-03-08", Termino: "2026-03-26", Fornecedor: "Sérgio", Status: "baixo risco"},
	{ID: 5, Etapa: "Pisos internos", Servico: "Revestimentos", Progresso: 0, Inicio: "2026-03-22", Termino: "2026-04-09", Fornecedor: "Sérgio", Status: "médio risco"},
	{ID: 6, Etapa: "Móveis", Servico: "Mobilias planejadas", Progresso: 0, Inicio: "2026-06-20", Termino: "2026-07-08", Fornecedor: "Definir", Status: "Alto risco"},
}

// Fallback returns a fresh copy of the built-in dataset.
func Fallback() []models.CanonicalRecord {
	out := make([]models.CanonicalRecord, len(fallbackRecords))
	copy(out, fallbackRecords[:])
	return out
}
