package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voyageflow/hub"
	"voyageflow/internal/channel"
	"voyageflow/internal/metrics"
	"voyageflow/logger"
	"voyageflow/models"
	"voyageflow/processor"
	"voyageflow/reader"
	"voyageflow/store"
)

// ErrUnsupportedFormat is re-exported so HTTP handlers can classify failures
// without importing the reader package.
var ErrUnsupportedFormat = reader.ErrUnsupportedFormat

// ParseError wraps a file parsing failure. The dataset is left untouched when
// it occurs; ingestion is all-or-nothing.
type ParseError struct {
	cause error
}

func (e *ParseError) Error() string { return e.cause.Error() }
func (e *ParseError) Unwrap() error { return e.cause }

// Pipeline turns an uploaded file into the new committed dataset and fans the
// change out to connected viewers. It is the only writer of the dataset store;
// concurrent uploads serialize on an internal mutex, last committed wins.
type Pipeline struct {
	store    *store.Dataset
	hub      *hub.Hub
	channels *channel.Channels
	mu       sync.Mutex
	log      *logger.Log

	uploadsCommitted int64
	rowsCommitted    int64
	uploadsRejected  int64
}

// NewPipeline wires the pipeline to its collaborators. channels may be nil
// when archiving is disabled.
func NewPipeline(st *store.Dataset, h *hub.Hub, ch *channel.Channels) *Pipeline {
	return &Pipeline{
		store:    st,
		hub:      h,
		channels: ch,
		log:      logger.GetLogger(),
	}
}

// Ingest parses the uploaded bytes, normalizes every row in original order,
// derives the KPI snapshot carrying forward the previous monetary figures,
// swaps the dataset store, and publishes the full replacement record set
// followed by the new snapshot. It returns the committed row count.
//
// On any error the store keeps its previous pair and nothing is published.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string) (int, error) {
	start := time.Now()
	log := p.log.WithComponent("ingest").WithFields(logger.Fields{
		"filename": filename,
		"bytes":    len(data),
	})

	rows, err := reader.Parse(data, filename)
	if err != nil {
		atomic.AddInt64(&p.uploadsRejected, 1)
		if errors.Is(err, reader.ErrUnsupportedFormat) {
			metrics.UploadsTotal.WithLabelValues("unsupported").Inc()
			log.Warn("unsupported upload format")
			return 0, fmt.Errorf("%w: %s", reader.ErrUnsupportedFormat, filename)
		}
		metrics.UploadsTotal.WithLabelValues("parse_error").Inc()
		log.WithError(err).Warn("upload parse failed")
		return 0, &ParseError{cause: err}
	}

	records := processor.NormalizeAll(rows)

	// Publish under the same lock as the swap so commit order and publish
	// order cannot invert across concurrent uploads.
	p.mu.Lock()
	_, prev := p.store.Current()
	kpi := processor.Aggregate(records, prev)
	p.store.Swap(records, kpi)
	p.hub.Publish(models.EventOpportunityBulk, records)
	p.hub.Publish(models.EventKPI, kpi)
	p.mu.Unlock()

	p.archive(ctx, records, kpi, filename)

	atomic.AddInt64(&p.uploadsCommitted, 1)
	atomic.AddInt64(&p.rowsCommitted, int64(len(records)))
	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.RowsIngested.Add(float64(len(records)))

	logger.LogPerformanceEntry(log, "ingest", "ingest_upload", time.Since(start), logger.Fields{
		"record_count": len(records),
		"awarded":      kpi.Awarded,
		"failed":       kpi.Failed,
	})
	logger.LogDataFlowEntry(log, "upload", "dataset", len(records), "opportunities")

	return len(records), nil
}

// archive offers the committed pair to the storage writer. Best-effort: a
// full buffer or disabled archiving never affects the upload result.
func (p *Pipeline) archive(ctx context.Context, records []models.Opportunity, kpi models.KPISnapshot, filename string) {
	if p.channels == nil {
		return
	}

	snap := models.DatasetSnapshot{
		SnapshotID: uuid.New().String(),
		Filename:   filename,
		Records:    records,
		KPI:        kpi,
		IngestedAt: time.Now().UTC(),
	}
	if p.channels.SendArchive(ctx, snap) {
		metrics.ArchiveSnapshots.WithLabelValues("queued").Inc()
	} else {
		metrics.ArchiveSnapshots.WithLabelValues("dropped").Inc()
	}
}

// Stats reports pipeline counters for the runtime report.
func (p *Pipeline) Stats() (committed, rows, rejected int64) {
	return atomic.LoadInt64(&p.uploadsCommitted),
		atomic.LoadInt64(&p.rowsCommitted),
		atomic.LoadInt64(&p.uploadsRejected)
}
