package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"obra-dashboard/internal/models"
	"obra-dashboard/internal/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRefreshInProgress is returned by Refresh while another attempt is loading.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// FallbackSource is the DatasetState.Source of fallback records.
const FallbackSource = "fallback"

// Ingestor runs ingestion attempts and is the only writer of the store.
type Ingestor struct {
	loader     Loader
	normalizer *SchemaNormalizer
	store      *state.Store
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewIngestor wires a loader to a store using the default alias table.
func NewIngestor(loader Loader, store *state.Store, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		loader:     loader,
		normalizer: NewSchemaNormalizer(nil),
		store:      store,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Normalizer returns the schema normalizer used for live rows.
func (in *Ingestor) Normalizer() *SchemaNormalizer {
	return in.normalizer
}

// Refresh runs one ingestion attempt and returns the resulting state. Load
// failures are not errors: they end in the fallback dataset. The only error
// is ErrRefreshInProgress, returned with the current state when an attempt
// is already loading.
func (in *Ingestor) Refresh(ctx context.Context) (models.DatasetState, error) {
	attemptID := in.newID()
	if !in.store.BeginLoading(attemptID) {
		in.logger.Debug("Refresh ignored, ingestion in flight")
		return in.store.Snapshot(), ErrRefreshInProgress
	}
	log := in.logger.With(zap.String("attempt", attemptID), zap.String("source", in.loader.Describe()))
	log.Info("Ingestion started")

	start := in.now()
	rows, err := in.load(ctx)
	if err != nil {
		in.finishFallback(log, attemptID, err)
	} else {
		in.finishReady(log, attemptID, rows)
	}
	log.Info("Ingestion finished", zap.Duration("took", in.now().Sub(start)))

	return in.store.Snapshot(), nil
}

func (in *Ingestor) load(ctx context.Context) (rows []models.RawRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = &LoadError{Kind: TransportError, Err: fmt.Errorf("loader panic: %v", r)}
		}
	}()
	return in.loader.Load(ctx)
}

func (in *Ingestor) finishReady(log *zap.Logger, attemptID string, rows []models.RawRow) {
	records := in.normalizer.Normalize(rows)
	headers := widestKeys(rows)

	for _, m := range in.normalizer.ResolveColumns(headers) {
		if m.Header == "" {
			log.Warn("Column not found in source", zap.String("field", m.Field))
		} else {
			log.Debug("Column resolved", zap.String("field", m.Field), zap.String("header", m.Header))
		}
	}

	now := in.now()
	in.store.Finish(models.DatasetState{
		Records:    records,
		LastUpdate: &now,
		Phase:      models.PhaseReady,
		AttemptID:  attemptID,
		Source:     in.loader.Describe(),
	}, headers)
	log.Info("Live data loaded", zap.Int("records", len(records)))
}

func (in *Ingestor) finishFallback(log *zap.Logger, attemptID string, cause error) {
	log.Warn("Ingestion failed, using fallback dataset",
		zap.String("kind", string(KindOf(cause))),
		zap.Error(cause))

	now := in.now()
	in.store.Finish(models.DatasetState{
		Records:       Fallback(),
		Error:         FallbackMessage,
		UsingFallback: true,
		LastUpdate:    &now,
		Phase:         models.PhaseReadyFallback,
		AttemptID:     attemptID,
		Source:        FallbackSource,
	}, nil)
}

// widestKeys returns the keys of the row with the most fields; short CSV
// lines carry fewer keys than the header.
func widestKeys(rows []models.RawRow) []string {
	var widest models.RawRow
	for _, r := range rows {
		if len(r) > len(widest) {
			widest = r
		}
	}
	return widest.Keys()
}
