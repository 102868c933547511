package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"

	"obra-dashboard/internal/analysis"
	"obra-dashboard/internal/models"
	"obra-dashboard/internal/service"
	"obra-dashboard/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

type Handler struct {
	Ingestor  *service.Ingestor
	Store     *state.Store
	Formatter *service.FormatNormalizer
	Logger    *zap.Logger
}

func NewHandler(ingestor *service.Ingestor, store *state.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Ingestor:  ingestor,
		Store:     store,
		Formatter: service.NewFormatNormalizer(),
		Logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dataset", h.GetDataset)
		r.Get("/metrics", h.GetMetrics)
		r.Get("/schema", h.GetSchema)
		r.Post("/refresh", h.Refresh)
		r.Get("/records.csv", h.ExportCSV)
		r.Get("/quality", h.GetQuality)
	})
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Dataset
// ============================================================================

// GetDataset returns the current state with metrics and the render view of
// every record
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.datasetResponse(h.Store.Snapshot()))
}

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, analysis.Aggregate(snap.Records))
}

// GetSchema returns the alias table and how the last live source's headers
// resolved against it
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	headers := h.Store.Headers()
	writeJSON(w, http.StatusOK, models.SchemaResponse{
		Headers:  headers,
		Mappings: h.Ingestor.Normalizer().ResolveColumns(headers),
	})
}

// GetQuality profiles every canonical field of the current records
func (h *Handler) GetQuality(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.ProfileRecords(h.Store.Snapshot().Records))
}

// Refresh runs an ingestion attempt and returns its result. While another
// attempt is loading the request is refused with 409 and the current state.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	// A client hanging up must not cut the attempt short; the loader has
	// its own timeout.
	snap, err := h.Ingestor.Refresh(context.WithoutCancel(r.Context()))
	if errors.Is(err, service.ErrRefreshInProgress) {
		writeJSON(w, http.StatusConflict, h.datasetResponse(snap))
		return
	}
	writeJSON(w, http.StatusOK, h.datasetResponse(snap))
}

// ExportCSV writes the current records as a semicolon separated CSV
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	snap := h.Store.Snapshot()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="acompanhamento.csv"`)

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'
	if err := gocsv.MarshalCSV(&snap.Records, csvWriter); err != nil {
		h.Logger.Error("CSV export failed", zap.Error(err))
		http.Error(w, "Failed to export CSV", http.StatusInternalServerError)
	}
}

func (h *Handler) datasetResponse(snap models.DatasetState) models.DatasetResponse {
	return models.DatasetResponse{
		Records:       h.Formatter.Views(snap.Records),
		Loading:       snap.Loading,
		Error:         snap.Error,
		UsingFallback: snap.UsingFallback,
		LastUpdate:    snap.LastUpdate,
		Phase:         snap.Phase,
		AttemptID:     snap.AttemptID,
		Source:        snap.Source,
		SourceLabel:   service.SourceLabel(snap),
		Metrics:       analysis.Aggregate(snap.Records),
	}
}

// ============================================================================
// Helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
