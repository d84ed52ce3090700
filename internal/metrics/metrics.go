// Registers:
//
//	voyageflow_uploads_total
//	voyageflow_rows_ingested_total
//	voyageflow_events_published_total
//	voyageflow_delivery_failures_total
//	voyageflow_connected_viewers
//	voyageflow_summary_requests_total
//	voyageflow_archive_snapshots_total
//	go_* and process_* system metrics
//
// Exposed through Handler(), mounted on the main router at /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	UploadsTotal     *prometheus.CounterVec
	RowsIngested     prometheus.Counter
	EventsPublished  *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	ConnectedViewers prometheus.Gauge
	SummaryRequests  *prometheus.CounterVec
	ArchiveSnapshots *prometheus.CounterVec
)

func init() {
	once.Do(func() {
		UploadsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyageflow_uploads_total",
				Help: "Upload attempts by outcome",
			},
			[]string{"outcome"},
		)
		RowsIngested = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voyageflow_rows_ingested_total",
				Help: "Rows successfully normalized and committed",
			},
		)
		EventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyageflow_events_published_total",
				Help: "Events fanned out to viewers by type",
			},
			[]string{"type"},
		)
		DeliveryFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "voyageflow_delivery_failures_total",
				Help: "Per-viewer delivery failures that led to a disconnect",
			},
		)
		ConnectedViewers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voyageflow_connected_viewers",
				Help: "Currently subscribed dashboard viewers",
			},
		)
		SummaryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyageflow_summary_requests_total",
				Help: "Summary requests by source used",
			},
			[]string{"source"},
		)
		ArchiveSnapshots = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyageflow_archive_snapshots_total",
				Help: "Dataset snapshots handed to the archive writer by outcome",
			},
			[]string{"outcome"},
		)

		_ = prometheus.Register(UploadsTotal)
		_ = prometheus.Register(RowsIngested)
		_ = prometheus.Register(EventsPublished)
		_ = prometheus.Register(DeliveryFailures)
		_ = prometheus.Register(ConnectedViewers)
		_ = prometheus.Register(SummaryRequests)
		_ = prometheus.Register(ArchiveSnapshots)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler returns the HTTP handler serving the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
