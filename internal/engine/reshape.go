package engine

import (
	"math"
	"strconv"
	"strings"

	"popdash/internal/models"
)

// NoSelection is the selector value meaning "all provinces".
const NoSelection = ""

// Filter returns the rows for selected, or a copy of every row when nothing is selected.
// Matching is exact and case-sensitive; an unknown province yields an empty subset.
func Filter(records []models.PopulationRecord, selected string) []models.PopulationRecord {
	if selected == NoSelection {
		out := make([]models.PopulationRecord, len(records))
		copy(out, records)
		return out
	}

	var out []models.PopulationRecord
	for _, r := range records {
		if r.Province == selected {
			out = append(out, r)
		}
	}
	return out
}

// DescribeProvince returns the descriptive fields of the first row of a single-province subset.
func DescribeProvince(subset []models.PopulationRecord) (models.ProvinceInfo, error) {
	if len(subset) == 0 {
		return models.ProvinceInfo{}, ErrOutOfRange
	}
	return subset[0].Info(), nil
}

// ReshapeToTidy pivots the year columns into one record per (province, year).
// Output is year-major: every row for 2000, then every row for 2010, and so on.
func ReshapeToTidy(subset []models.PopulationRecord) []models.TidyRecord {
	out := make([]models.TidyRecord, 0, len(subset)*models.NumYears)
	for i, y := range models.Years {
		for _, r := range subset {
			out = append(out, models.TidyRecord{
				Province:   r.Province,
				Year:       y,
				Population: ParsePopulation(r.Counts[i]),
			})
		}
	}
	return out
}

// ParsePopulation coerces a raw cell. Anything that is not a finite number is Missing.
func ParsePopulation(raw string) models.Population {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.Missing
	}
	if isHex(s) {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Missing
	}
	return models.Count(v)
}

// isHex reports a 0x-prefixed literal, which ParseFloat accepts but is not a decimal count.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
