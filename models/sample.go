package models

// DefaultOpportunities returns the built-in sample record set the server
// boots with before any upload arrives.
func DefaultOpportunities() []Opportunity {
	return []Opportunity{
		{No: 1, Status: "Awarded", Vessel: "MT TBN Small II", Account: "PT KPI", Cargo: "Paraxylene", Volume: "5,000 MT", FreightRate: "23.5 USD/MT", Margin: "9.3%"},
		{No: 2, Status: "Awarded", Vessel: "MT Griya Bugis", Account: "PT PL", Cargo: "LBO", Volume: "1,900 MT", FreightRate: "IDR 1,701,000,000", Margin: ""},
		{No: 3, Status: "Failed", Vessel: "PIS Mahakam", Account: "PT HTK", Cargo: "Methanol", Volume: "", FreightRate: "", Margin: ""},
	}
}

// DefaultKPI returns the baseline snapshot paired with the sample records.
// The monetary figures are the configured starting point and are carried
// forward by the aggregator on every ingest.
func DefaultKPI() KPISnapshot {
	records := DefaultOpportunities()
	awarded, failed := 0, 0
	for _, r := range records {
		switch r.Status {
		case StatusAwarded:
			awarded++
		case StatusFailed:
			failed++
		}
	}
	return KPISnapshot{
		TotalRevenue:       23347974.36,
		Collected:          11805925.86,
		Outstanding:        11542048.50,
		CollectionRate:     50.57,
		ConversionRate:     36,
		TotalOpportunities: len(records),
		Awarded:            awarded,
		Failed:             failed,
		OnProgress:         0,
	}
}
