package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"

	"voyageflow/hub"
	"voyageflow/internal/channel"
	"voyageflow/models"
	"voyageflow/store"
)

func newTestPipeline() (*Pipeline, *store.Dataset, *hub.Hub) {
	st := store.NewDataset()
	h := hub.New()
	return NewPipeline(st, h, nil), st, h
}

func TestIngestCommitsAndCounts(t *testing.T) {
	p, st, _ := newTestPipeline()

	csv := []byte("No,Status,Vessel,Cargo\n1,Awarded,MT Alpha,Paraxylene\n2,Failed,MT Beta,LBO\n3,,MT Gamma,Methanol\n")
	count, err := p.Ingest(context.Background(), csv, "upload.csv")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	records, kpi := st.Current()
	if len(records) != 3 {
		t.Fatalf("store holds %d records, want 3", len(records))
	}
	if records[0].Vessel != "MT Alpha" || records[2].Vessel != "MT Gamma" {
		t.Errorf("row order not preserved: %+v", records)
	}
	if kpi.TotalOpportunities != 3 || kpi.Awarded != 1 || kpi.Failed != 1 || kpi.OnProgress != 1 {
		t.Errorf("unexpected kpi: %+v", kpi)
	}
	if kpi.ConversionRate != 33 {
		t.Errorf("conversion rate = %d, want 33", kpi.ConversionRate)
	}
}

func TestIngestCarriesMonetaryKPI(t *testing.T) {
	p, st, _ := newTestPipeline()
	_, before := st.Current()

	if _, err := p.Ingest(context.Background(), []byte("Status\nAwarded\n"), "u.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	_, after := st.Current()
	if after.TotalRevenue != before.TotalRevenue || after.Collected != before.Collected ||
		after.Outstanding != before.Outstanding || after.CollectionRate != before.CollectionRate {
		t.Fatalf("monetary KPI fields must carry over: before %+v after %+v", before, after)
	}
}

func TestIngestUnsupportedFormatLeavesStoreUntouched(t *testing.T) {
	p, st, _ := newTestPipeline()
	beforeRecords, beforeKPI := st.Current()

	_, err := p.Ingest(context.Background(), []byte("%PDF-1.4"), "report.pdf")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	afterRecords, afterKPI := st.Current()
	if !reflect.DeepEqual(beforeRecords, afterRecords) || beforeKPI != afterKPI {
		t.Fatalf("store changed on rejected upload")
	}
}

func TestIngestParseErrorLeavesStoreUntouched(t *testing.T) {
	p, st, _ := newTestPipeline()
	beforeRecords, _ := st.Current()

	_, err := p.Ingest(context.Background(), []byte("not a zip archive"), "book.xlsx")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	afterRecords, _ := st.Current()
	if !reflect.DeepEqual(beforeRecords, afterRecords) {
		t.Fatalf("store changed on failed parse")
	}
}

func TestIngestPublishesBothEvents(t *testing.T) {
	st := store.NewDataset()
	h := hub.New()
	p := NewPipeline(st, h, nil)

	v := hub.NewViewer("v1", 4)
	h.Subscribe(v)

	if _, err := p.Ingest(context.Background(), []byte("Status\nAwarded\nFailed\n"), "u.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(v.Send) != 2 {
		t.Fatalf("viewer received %d events, want 2 (bulk then kpi)", len(v.Send))
	}
}

func TestConcurrentIngestPublishOrderMatchesCommitOrder(t *testing.T) {
	st := store.NewDataset()
	h := hub.New()
	p := NewPipeline(st, h, nil)

	v := hub.NewViewer("v1", 256)
	h.Subscribe(v)

	uploads := [][]byte{
		[]byte("Status\nAwarded\n"),
		[]byte("Status\nAwarded\nFailed\n"),
		[]byte("Status\nAwarded\nFailed\n\n"),
		[]byte("Status\nAwarded\nAwarded\nFailed\nFailed\n"),
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(data []byte) {
			defer wg.Done()
			if _, err := p.Ingest(context.Background(), data, "c.csv"); err != nil {
				t.Errorf("Ingest: %v", err)
			}
		}(uploads[i%len(uploads)])
	}
	wg.Wait()

	// The last kpi event any viewer saw must describe the dataset the store
	// ended up holding.
	var lastKPI models.KPISnapshot
	sawKPI := false
	for len(v.Send) > 0 {
		var evt models.Event
		if err := json.Unmarshal(<-v.Send, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if evt.Type != models.EventKPI {
			continue
		}
		raw, _ := json.Marshal(evt.Payload)
		if err := json.Unmarshal(raw, &lastKPI); err != nil {
			t.Fatalf("decode kpi payload: %v", err)
		}
		sawKPI = true
	}
	if !sawKPI {
		t.Fatalf("no kpi event observed")
	}

	records, kpi := st.Current()
	if lastKPI.TotalOpportunities != kpi.TotalOpportunities || lastKPI.Awarded != kpi.Awarded ||
		lastKPI.Failed != kpi.Failed {
		t.Fatalf("last published kpi %+v does not match committed kpi %+v", lastKPI, kpi)
	}
	if len(records) != kpi.TotalOpportunities {
		t.Fatalf("store pair inconsistent: %d records vs kpi total %d", len(records), kpi.TotalOpportunities)
	}
}

func TestIngestQueuesArchiveSnapshot(t *testing.T) {
	st := store.NewDataset()
	h := hub.New()
	ch := channel.NewChannels(4)
	defer ch.Close()
	p := NewPipeline(st, h, ch)

	if _, err := p.Ingest(context.Background(), []byte("Status\nAwarded\n"), "q3.csv"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	select {
	case snap := <-ch.Archive:
		if snap.Filename != "q3.csv" || len(snap.Records) != 1 {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
		if snap.SnapshotID == "" {
			t.Errorf("snapshot id missing")
		}
	default:
		t.Fatalf("expected a queued archive snapshot")
	}
}
