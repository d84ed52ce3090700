package processor

import (
	"testing"

	"voyageflow/models"
)

func TestAggregateCounts(t *testing.T) {
	records := []models.Opportunity{
		{No: 1, Status: "Awarded"},
		{No: 2, Status: "Failed"},
		{No: 3, Status: ""},
	}
	kpi := Aggregate(records, models.KPISnapshot{})

	if kpi.TotalOpportunities != 3 {
		t.Errorf("total = %d, want 3", kpi.TotalOpportunities)
	}
	if kpi.Awarded != 1 || kpi.Failed != 1 || kpi.OnProgress != 1 {
		t.Errorf("partition = %d/%d/%d, want 1/1/1", kpi.Awarded, kpi.Failed, kpi.OnProgress)
	}
	if kpi.ConversionRate != 33 {
		t.Errorf("conversion rate = %d, want 33", kpi.ConversionRate)
	}
	if kpi.Awarded+kpi.Failed+kpi.OnProgress != kpi.TotalOpportunities {
		t.Errorf("counts not mutually consistent: %+v", kpi)
	}
}

func TestAggregateCaseInsensitiveStatus(t *testing.T) {
	records := []models.Opportunity{
		{Status: "awarded"},
		{Status: "AWARDED"},
		{Status: "failed"},
		{Status: "On Progress"},
	}
	kpi := Aggregate(records, models.KPISnapshot{})
	if kpi.Awarded != 2 || kpi.Failed != 1 || kpi.OnProgress != 1 {
		t.Fatalf("partition = %d/%d/%d, want 2/1/1", kpi.Awarded, kpi.Failed, kpi.OnProgress)
	}
}

func TestAggregateEmptySet(t *testing.T) {
	kpi := Aggregate(nil, models.KPISnapshot{})
	if kpi.TotalOpportunities != 0 || kpi.ConversionRate != 0 {
		t.Fatalf("empty set should yield zero totals, got %+v", kpi)
	}
}

func TestAggregateCarriesMonetaryFields(t *testing.T) {
	prev := models.KPISnapshot{
		TotalRevenue:   23347974.36,
		Collected:      11805925.86,
		Outstanding:    11542048.50,
		CollectionRate: 50.57,
	}
	kpi := Aggregate([]models.Opportunity{{Status: "Awarded"}}, prev)
	if kpi.TotalRevenue != prev.TotalRevenue || kpi.Collected != prev.Collected ||
		kpi.Outstanding != prev.Outstanding || kpi.CollectionRate != prev.CollectionRate {
		t.Fatalf("monetary fields must carry over, got %+v", kpi)
	}
	if kpi.ConversionRate != 100 {
		t.Errorf("conversion rate = %d, want 100", kpi.ConversionRate)
	}
}

func TestAggregateRounding(t *testing.T) {
	// 2 of 3 awarded rounds to 67, not truncates to 66.
	records := []models.Opportunity{
		{Status: "Awarded"},
		{Status: "Awarded"},
		{Status: "Failed"},
	}
	kpi := Aggregate(records, models.KPISnapshot{})
	if kpi.ConversionRate != 67 {
		t.Fatalf("conversion rate = %d, want 67", kpi.ConversionRate)
	}
}
