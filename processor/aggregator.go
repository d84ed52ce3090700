package processor

import (
	"math"
	"strings"

	"voyageflow/models"
)

// Aggregate derives a KPI snapshot from the complete record set. Status
// comparison is case-insensitive. The monetary fields (revenue, collected,
// outstanding, collection rate) are copied from prev: uploads carry no
// authoritative money rollups, so recomputing them from the unit-mixed
// display strings would corrupt them.
func Aggregate(records []models.Opportunity, prev models.KPISnapshot) models.KPISnapshot {
	kpi := models.KPISnapshot{
		TotalRevenue:   prev.TotalRevenue,
		Collected:      prev.Collected,
		Outstanding:    prev.Outstanding,
		CollectionRate: prev.CollectionRate,
	}

	kpi.TotalOpportunities = len(records)
	for _, r := range records {
		switch strings.ToLower(r.Status) {
		case strings.ToLower(models.StatusAwarded):
			kpi.Awarded++
		case strings.ToLower(models.StatusFailed):
			kpi.Failed++
		}
	}
	kpi.OnProgress = kpi.TotalOpportunities - kpi.Awarded - kpi.Failed

	if kpi.TotalOpportunities > 0 {
		kpi.ConversionRate = int(math.Round(float64(kpi.Awarded) / float64(kpi.TotalOpportunities) * 100))
	}

	return kpi
}
