// Package export writes the long-form population table in columnar and spreadsheet formats.
package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"popdash/internal/models"
)

const ArrowContentType = "application/vnd.apache.arrow.stream"

// TidySchema is the Arrow schema of the long-form table. Missing populations are nulls.
var TidySchema = arrow.NewSchema([]arrow.Field{
	{Name: "Province", Type: arrow.BinaryTypes.String},
	{Name: "Year", Type: arrow.BinaryTypes.String},
	{Name: "Population", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// TidyRecordBatch builds an Arrow record from rows. The caller must Release it.
func TidyRecordBatch(mem memory.Allocator, rows []models.TidyRecord) arrow.Record {
	b := array.NewRecordBuilder(mem, TidySchema)
	defer b.Release()

	provinces := b.Field(0).(*array.StringBuilder)
	years := b.Field(1).(*array.StringBuilder)
	pops := b.Field(2).(*array.Float64Builder)

	provinces.Reserve(len(rows))
	years.Reserve(len(rows))
	pops.Reserve(len(rows))

	for _, r := range rows {
		provinces.Append(r.Province)
		years.Append(string(r.Year))
		if r.Population.Valid {
			pops.Append(r.Population.Value)
		} else {
			pops.AppendNull()
		}
	}
	return b.NewRecord()
}

// WriteArrow writes rows to w as an Arrow IPC stream holding a single record batch.
func WriteArrow(w io.Writer, rows []models.TidyRecord) error {
	mem := memory.NewGoAllocator()

	rec := TidyRecordBatch(mem, rows)
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(TidySchema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("arrow write: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("arrow close: %w", err)
	}
	return nil
}
