package writer

import (
	"strings"
	"testing"
	"time"

	"voyageflow/models"
)

func testSnapshot() models.DatasetSnapshot {
	return models.DatasetSnapshot{
		SnapshotID: "abc123",
		Filename:   "q3.csv",
		Records: []models.Opportunity{
			{No: 1, Status: "Awarded", Vessel: "MT Alpha", Cargo: "Paraxylene"},
			{No: 2, Status: "Failed", Vessel: "MT Beta", Cargo: "LBO"},
		},
		IngestedAt: time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestBuildArchiveKey(t *testing.T) {
	key := buildArchiveKey("datasets", testSnapshot())
	if !strings.HasPrefix(key, "datasets/year=2025/month=07/day=14/") {
		t.Fatalf("unexpected key prefix: %s", key)
	}
	if !strings.HasSuffix(key, "_abc123.parquet") {
		t.Fatalf("unexpected key suffix: %s", key)
	}
	if strings.Contains(key, "\\") {
		t.Fatalf("key must use forward slashes: %s", key)
	}
}

func TestBuildArchiveKeyNoPrefix(t *testing.T) {
	key := buildArchiveKey("", testSnapshot())
	if !strings.HasPrefix(key, "year=2025/") {
		t.Fatalf("unexpected key: %s", key)
	}
}

func TestEncodeParquet(t *testing.T) {
	data, size, err := encodeParquet(testSnapshot(), "snappy")
	if err != nil {
		t.Fatalf("encodeParquet: %v", err)
	}
	if size == 0 || int64(len(data)) != size {
		t.Fatalf("size mismatch: len=%d size=%d", len(data), size)
	}
	// Parquet files start and end with the PAR1 magic bytes.
	if string(data[:4]) != "PAR1" || string(data[len(data)-4:]) != "PAR1" {
		t.Fatalf("output is not a parquet file")
	}
}
