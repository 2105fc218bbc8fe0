package engine

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"popdash/internal/models"
)

// Header names the dataset must carry. Matching is exact.
const (
	ColProvince    = "Province"
	ColRegion      = "Region"
	ColCapital     = "Capital"
	ColIslandGroup = "Island Group"
)

var requiredColumns = []string{
	ColProvince, ColRegion, ColCapital, ColIslandGroup,
	string(models.Year2000), string(models.Year2010), string(models.Year2015), string(models.Year2020),
}

// columnIndex maps each required column to its position in the header.
type columnIndex struct {
	province, region, capital, island int
	years                             [models.NumYears]int
}

func indexHeader(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := pos[name]; dup {
			return columnIndex{}, fmt.Errorf("duplicate column %q", name)
		}
		pos[name] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := pos[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("missing columns %q", missing)
	}

	idx := columnIndex{
		province: pos[ColProvince],
		region:   pos[ColRegion],
		capital:  pos[ColCapital],
		island:   pos[ColIslandGroup],
	}
	for i, y := range models.Years {
		idx.years[i] = pos[string(y)]
	}
	return idx, nil
}

// LoadDataset reads and parses the CSV file at path.
func LoadDataset(path string) (*Dataset, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return ParseDataset(content, path)
}

// ParseDataset parses raw CSV bytes. source is only used for error messages and Dataset.Source.
func ParseDataset(content []byte, source string) (*Dataset, error) {
	// Spreadsheet exports often prepend a BOM, which would otherwise stick to "Province".
	decoded := transform.NewReader(bytes.NewReader(content), unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	r := csv.NewReader(decoded)
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &LoadError{Path: source, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, &LoadError{Path: source, Line: 1, Err: err}
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, &LoadError{Path: source, Line: 1, Err: err}
	}

	var (
		records []models.PopulationRecord
		first   = make(map[string]models.ProvinceInfo)
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &LoadError{Path: source, Line: line, Err: err}
		}
		line, _ := r.FieldPos(0)

		rec := models.PopulationRecord{
			Province:    row[idx.province],
			Region:      row[idx.region],
			Capital:     row[idx.capital],
			IslandGroup: row[idx.island],
		}
		for i, col := range idx.years {
			rec.Counts[i] = row[col]
		}

		if rec.Province == "" {
			return nil, &LoadError{Path: source, Line: line, Err: errors.New("empty province")}
		}
		if info, ok := first[rec.Province]; ok && info != rec.Info() {
			return nil, &LoadError{
				Path: source,
				Line: line,
				Err:  fmt.Errorf("province %q has conflicting region/capital/island group", rec.Province),
			}
		}
		first[rec.Province] = rec.Info()

		records = append(records, rec)
	}

	return NewDataset(source, xxh3.Hash(content), records), nil
}
