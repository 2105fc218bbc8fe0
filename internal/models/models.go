package models

import (
	"fmt"
	"math"
	"strconv"
)

// Year is one of the census year labels carried by the dataset.
type Year string

const (
	Year2000 Year = "2000"
	Year2010 Year = "2010"
	Year2015 Year = "2015"
	Year2020 Year = "2020"
)

// Years lists the year labels in chronological order.
var Years = [NumYears]Year{Year2000, Year2010, Year2015, Year2020}

const NumYears = 4

// Index returns the position of y in Years, or -1.
func (y Year) Index() int {
	for i, v := range Years {
		if v == y {
			return i
		}
	}
	return -1
}

// PopulationRecord is one row of the source dataset.
// Counts holds the raw year cells, indexed like Years.
type PopulationRecord struct {
	Province    string
	Region      string
	Capital     string
	IslandGroup string
	Counts      [NumYears]string
}

// Raw returns the unparsed cell for year y.
func (r PopulationRecord) Raw(y Year) string {
	i := y.Index()
	if i < 0 {
		return ""
	}
	return r.Counts[i]
}

// Info returns the descriptive fields of the record.
func (r PopulationRecord) Info() ProvinceInfo {
	return ProvinceInfo{Region: r.Region, Capital: r.Capital, IslandGroup: r.IslandGroup}
}

// Population is a count that may be missing. The zero value is Missing.
type Population struct {
	Value float64
	Valid bool
}

var Missing = Population{}

func Count(v float64) Population {
	return Population{Value: v, Valid: true}
}

func (p Population) String() string {
	if !p.Valid {
		return "MISSING"
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}

func (p Population) MarshalJSON() ([]byte, error) {
	if !p.Valid || math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, p.Value, 'f', -1, 64), nil
}

func (p *Population) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Missing
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("population: %w", err)
	}
	*p = Count(v)
	return nil
}

// TidyRecord is one (province, year) observation of the long-form table.
type TidyRecord struct {
	Province   string     `json:"province"`
	Year       Year       `json:"year"`
	Population Population `json:"population"`
}

type ProvinceInfo struct {
	Region      string `json:"region"`
	Capital     string `json:"capital"`
	IslandGroup string `json:"island_group"`
}

// String renders the dashboard info line.
func (i ProvinceInfo) String() string {
	return fmt.Sprintf("Region: %s | Capital: %s | Island Group: %s", i.Region, i.Capital, i.IslandGroup)
}

// DashboardView is everything a single page render needs.
type DashboardView struct {
	Selected string       `json:"selected"`
	Options  []string     `json:"options"`
	Info     string       `json:"info"`
	Trend    []TidyRecord `json:"trend"`
	Bars     []TidyRecord `json:"bars"`
}
