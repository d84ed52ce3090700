package processor

import (
	"reflect"
	"testing"

	"voyageflow/models"
)

func TestNormalizeAliasPriority(t *testing.T) {
	row := models.RawRow{
		"Freight":      "23.5 USD/MT",
		"Freight Rate": "IDR 1,701,000,000",
	}
	rec := Normalize(row, 1)
	if rec.FreightRate != "23.5 USD/MT" {
		t.Fatalf("expected higher-priority alias to win, got %q", rec.FreightRate)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	row := models.RawRow{
		"no":     "7",
		"status": "Awarded",
		"Vessel": "MT Griya Bugis",
		"cargo":  "LBO",
		"Volume": "1,900 MT",
	}
	first := Normalize(row, 3)
	second := Normalize(row, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization not deterministic: %+v vs %+v", first, second)
	}
	if first.No != 7 {
		t.Errorf("expected explicit sequence number 7, got %d", first.No)
	}
	if first.Status != "Awarded" {
		t.Errorf("unexpected status: %q", first.Status)
	}
}

func TestNormalizePositionalFallback(t *testing.T) {
	cases := []struct {
		name string
		row  models.RawRow
		pos  int
		want int
	}{
		{"missing", models.RawRow{"Status": "Failed"}, 4, 4},
		{"non numeric", models.RawRow{"No": "n/a"}, 2, 2},
		{"dotted alias", models.RawRow{"No.": "9"}, 1, 9},
	}
	for _, c := range cases {
		if got := Normalize(c.row, c.pos).No; got != c.want {
			t.Errorf("%s: No = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestNormalizeAllKeepsOrder(t *testing.T) {
	rows := []models.RawRow{
		{"Vessel": "A"},
		{"Vessel": "B"},
		{"Vessel": "C"},
	}
	records := NormalizeAll(rows)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.No != i+1 {
			t.Errorf("record %d: sequence %d, want %d", i, r.No, i+1)
		}
	}
	if records[1].Vessel != "B" {
		t.Errorf("row order not preserved: %+v", records)
	}
}

func TestNormalizeTotal(t *testing.T) {
	rec := Normalize(models.RawRow{}, 5)
	want := models.Opportunity{No: 5}
	if !reflect.DeepEqual(rec, want) {
		t.Fatalf("empty row should yield empty canonical record, got %+v", rec)
	}
}
