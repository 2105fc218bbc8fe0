package export

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"popdash/internal/models"
)

func cebuRows() []models.TidyRecord {
	return []models.TidyRecord{
		{Province: "Cebu", Year: models.Year2000, Population: models.Count(2390000)},
		{Province: "Cebu", Year: models.Year2010, Population: models.Count(2619000)},
		{Province: "Cebu", Year: models.Year2015, Population: models.Count(2938000)},
		{Province: "Cebu", Year: models.Year2020, Population: models.Missing},
	}
}

func TestTidyRecordBatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := TidyRecordBatch(mem, cebuRows())
	defer rec.Release()

	require.EqualValues(t, 4, rec.NumRows())
	pops := rec.Column(2).(*array.Float64)
	assert.Equal(t, 1, pops.NullN())
	assert.True(t, pops.IsNull(3))
	assert.Equal(t, 2390000.0, pops.Value(0))

	years := rec.Column(1).(*array.String)
	assert.Equal(t, "2015", years.Value(2))
}

func TestWriteArrowRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, cebuRows()))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()

	assert.True(t, r.Schema().Equal(TidySchema))
	require.True(t, r.Next())
	rec := r.Record()
	require.EqualValues(t, 4, rec.NumRows())

	provinces := rec.Column(0).(*array.String)
	pops := rec.Column(2).(*array.Float64)
	for i := 0; i < 4; i++ {
		assert.Equal(t, "Cebu", provinces.Value(i))
	}
	assert.Equal(t, 2938000.0, pops.Value(2))
	assert.True(t, pops.IsNull(3))
	assert.False(t, r.Next())
}

func TestWriteArrowEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, nil))

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()
	require.True(t, r.Next())
	assert.Zero(t, r.Record().NumRows())
}

func TestWriteXLSX(t *testing.T) {
	info := &models.ProvinceInfo{Region: "Central Visayas", Capital: "Cebu City", IslandGroup: "Visayas"}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, cebuRows(), "Cebu", info))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(PopulationSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Province", "Year", "Population"}, rows[0])
	assert.Equal(t, []string{"Cebu", "2000", "2390000"}, rows[1])

	missing, err := f.GetCellValue(PopulationSheet, "C5")
	require.NoError(t, err)
	assert.Empty(t, missing)

	capital, err := f.GetCellValue(ProvinceSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Cebu City", capital)
}

func TestWriteXLSXWithoutProvince(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, cebuRows(), "", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{PopulationSheet}, f.GetSheetList())
}
