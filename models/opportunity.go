package models

import (
	"time"
)

// RawRow is one uploaded table row before normalization. Keys carry whatever
// casing and spelling the source file used; values are kept as display strings.
type RawRow map[string]string

// Opportunity is the canonical record for one tracked voyage opportunity.
// Volume, FreightRate and Margin are unit-bearing display strings; the source
// data mixes currencies and units, so parsing them is deferred on purpose.
type Opportunity struct {
	No          int    `json:"No"`
	Status      string `json:"Status"`
	Vessel      string `json:"Vessel"`
	Account     string `json:"Account"`
	Cargo       string `json:"Cargo"`
	Volume      string `json:"Volume"`
	FreightRate string `json:"FreightRate"`
	Margin      string `json:"Margin"`
}

// Recognized status values. Anything else counts as on-progress.
const (
	StatusAwarded = "Awarded"
	StatusFailed  = "Failed"
)

// KPISnapshot summarizes the current record set. Structural counters are
// recomputed on every ingest; the monetary fields are carried over from the
// previous snapshot because uploaded rows hold no authoritative money rollups.
type KPISnapshot struct {
	TotalRevenue       float64 `json:"TotalRevenue"`
	Collected          float64 `json:"Collected"`
	Outstanding        float64 `json:"Outstanding"`
	CollectionRate     float64 `json:"CollectionRate"`
	ConversionRate     int     `json:"ConversionRate"`
	TotalOpportunities int     `json:"TotalOpportunities"`
	Awarded            int     `json:"Awarded"`
	Failed             int     `json:"Failed"`
	OnProgress         int     `json:"OnProgress"`
}

// DatasetSnapshot is the archive unit handed to the storage writer after a
// successful ingest.
type DatasetSnapshot struct {
	SnapshotID string        `json:"snapshot_id"`
	Filename   string        `json:"filename"`
	Records    []Opportunity `json:"records"`
	KPI        KPISnapshot   `json:"kpi"`
	IngestedAt time.Time     `json:"ingested_at"`
}
