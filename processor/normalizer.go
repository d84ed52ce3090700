package processor

import (
	"strconv"
	"strings"

	"voyageflow/models"
)

// fieldAliases maps each canonical column to the raw header spellings seen in
// uploads, in priority order. Matching is case-sensitive: the first alias with
// a non-empty value wins; a present-but-empty cell falls through to the next
// alias.
var fieldAliases = map[string][]string{
	"No":          {"No", "no", "No."},
	"Status":      {"Status", "status"},
	"Vessel":      {"Vessel", "vessel"},
	"Account":     {"Account", "account"},
	"Cargo":       {"Cargo", "cargo"},
	"Volume":      {"Volume", "volume"},
	"FreightRate": {"FreightRate", "Freight", "Freight Rate"},
	"Margin":      {"Margin", "margin"},
}

// resolve returns the first non-empty value among the aliases for the given
// canonical field, or "" when none is present.
func resolve(row models.RawRow, field string) string {
	for _, alias := range fieldAliases[field] {
		if v, ok := row[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Normalize maps one raw uploaded row into a canonical Opportunity. pos is the
// 1-based row position in the upload and backs the sequence number when the
// row carries none. Normalization is total: every row yields a record with all
// canonical fields populated, empty string standing in for absent values.
func Normalize(row models.RawRow, pos int) models.Opportunity {
	no := pos
	if raw := resolve(row, "No"); raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			no = n
		}
	}

	return models.Opportunity{
		No:          no,
		Status:      resolve(row, "Status"),
		Vessel:      resolve(row, "Vessel"),
		Account:     resolve(row, "Account"),
		Cargo:       resolve(row, "Cargo"),
		Volume:      resolve(row, "Volume"),
		FreightRate: resolve(row, "FreightRate"),
		Margin:      resolve(row, "Margin"),
	}
}

// NormalizeAll converts rows in upload order, assigning positional sequence
// numbers starting at 1.
func NormalizeAll(rows []models.RawRow) []models.Opportunity {
	records := make([]models.Opportunity, 0, len(rows))
	for i, row := range rows {
		records = append(records, Normalize(row, i+1))
	}
	return records
}
