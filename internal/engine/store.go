package engine

import (
	"slices"

	"popdash/internal/models"
)

// Dataset is the loaded population table. It is never mutated after load.
type Dataset struct {
	// Source is the path the dataset was read from.
	Source string

	// Checksum is the xxh3 hash of the raw file bytes.
	Checksum uint64

	records   []models.PopulationRecord
	provinces []string
}

// NewDataset wraps records (kept in file order) and indexes the province names.
func NewDataset(source string, checksum uint64, records []models.PopulationRecord) *Dataset {
	seen := make(map[string]struct{}, len(records))
	provinces := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Province]; ok {
			continue
		}
		seen[r.Province] = struct{}{}
		provinces = append(provinces, r.Province)
	}
	slices.Sort(provinces)

	return &Dataset{
		Source:    source,
		Checksum:  checksum,
		records:   records,
		provinces: provinces,
	}
}

// Records returns the rows in file order. Callers must not modify the slice.
func (d *Dataset) Records() []models.PopulationRecord {
	return d.records
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Provinces returns the sorted distinct province names.
func (d *Dataset) Provinces() []string {
	return slices.Clone(d.provinces)
}

// Has reports whether province is present in the dataset.
func (d *Dataset) Has(province string) bool {
	_, found := slices.BinarySearch(d.provinces, province)
	return found
}

// Options returns the selector values: the no-selection sentinel followed by the provinces.
func (d *Dataset) Options() []string {
	return append([]string{NoSelection}, d.provinces...)
}
