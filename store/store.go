package store

import (
	"sync"

	"voyageflow/logger"
	"voyageflow/models"
)

// Dataset holds the single current (record set, KPI snapshot) pair for the
// process. The two are replaced together under one lock so no reader can pair
// records with a snapshot derived from a different set. Reads never block on
// each other and never fail.
type Dataset struct {
	mu      sync.RWMutex
	records []models.Opportunity
	kpi     models.KPISnapshot
	log     *logger.Log
}

// NewDataset creates a store seeded with the built-in sample data.
func NewDataset() *Dataset {
	return &Dataset{
		records: models.DefaultOpportunities(),
		kpi:     models.DefaultKPI(),
		log:     logger.GetLogger(),
	}
}

// Current returns the committed pair. The record slice is copied so callers
// cannot mutate the stored set.
func (d *Dataset) Current() ([]models.Opportunity, models.KPISnapshot) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	records := make([]models.Opportunity, len(d.records))
	copy(records, d.records)
	return records, d.kpi
}

// Opportunities returns the committed record set in upload order.
func (d *Dataset) Opportunities() []models.Opportunity {
	records, _ := d.Current()
	return records
}

// KPI returns the committed snapshot.
func (d *Dataset) KPI() models.KPISnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kpi
}

// Swap atomically replaces both halves of the pair. Concurrent swaps
// serialize; the last committed pair wins, there is no merge.
func (d *Dataset) Swap(records []models.Opportunity, kpi models.KPISnapshot) {
	d.mu.Lock()
	d.records = records
	d.kpi = kpi
	d.mu.Unlock()

	d.log.WithComponent("dataset").WithFields(logger.Fields{
		"record_count": len(records),
		"awarded":      kpi.Awarded,
		"failed":       kpi.Failed,
	}).Debug("dataset swapped")
}
