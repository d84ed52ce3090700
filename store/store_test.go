package store

import (
	"fmt"
	"sync"
	"testing"

	"voyageflow/models"
)

func TestNewDatasetSeedsSampleData(t *testing.T) {
	d := NewDataset()
	records, kpi := d.Current()
	if len(records) == 0 {
		t.Fatalf("expected seeded records")
	}
	if kpi.TotalOpportunities != len(records) {
		t.Errorf("seed KPI total %d does not match %d records", kpi.TotalOpportunities, len(records))
	}
}

func TestSwapReplacesPair(t *testing.T) {
	d := NewDataset()
	records := []models.Opportunity{{No: 1, Status: "Awarded"}}
	kpi := models.KPISnapshot{TotalOpportunities: 1, Awarded: 1, ConversionRate: 100}

	d.Swap(records, kpi)

	got, gotKPI := d.Current()
	if len(got) != 1 || got[0].No != 1 {
		t.Fatalf("unexpected records after swap: %+v", got)
	}
	if gotKPI != kpi {
		t.Fatalf("unexpected kpi after swap: %+v", gotKPI)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	d := NewDataset()
	records, _ := d.Current()
	records[0].Vessel = "mutated"
	again, _ := d.Current()
	if again[0].Vessel == "mutated" {
		t.Fatalf("Current must return a copy of the record set")
	}
}

// Readers racing a writer must always observe a KPI total that matches the
// record set it was derived from.
func TestSwapAtomicity(t *testing.T) {
	d := NewDataset()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			n := i%5 + 1
			records := make([]models.Opportunity, n)
			for j := range records {
				records[j] = models.Opportunity{No: j + 1}
			}
			d.Swap(records, models.KPISnapshot{TotalOpportunities: n, OnProgress: n})
		}
		close(stop)
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				records, kpi := d.Current()
				if len(records) != kpi.TotalOpportunities {
					panic(fmt.Sprintf("torn read: %d records with total %d", len(records), kpi.TotalOpportunities))
				}
			}
		}()
	}

	wg.Wait()
}
