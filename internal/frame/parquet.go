package frame

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

type columnKind int

const (
	kindString columnKind = iota
	kindInt64
	kindFloat64
	kindBool
	kindTimestamp
)

// WriteParquet serializes the frame into a Snappy-compressed Parquet file.
func WriteParquet(path string, f *Frame) error {
	if f == nil {
		return fmt.Errorf("write parquet: nil frame")
	}

	kinds := make([]columnKind, len(f.Columns))
	fields := make([]arrow.Field, len(f.Columns))
	for i, col := range f.Columns {
		kinds[i] = inferKind(f.Rows, col)
		fields[i] = arrow.Field{Name: col, Type: arrowType(kinds[i]), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for i, col := range f.Columns {
		for _, row := range f.Rows {
			appendValue(b.Field(i), kinds[i], row[col])
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	w, err := pqarrow.NewFileWriter(schema, out, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	return nil
}

// ReadParquet loads a Parquet file produced by WriteParquet (or any flat Parquet file).
func ReadParquet(ctx context.Context, path string) (*Frame, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	rdr, err := file.NewParquetReader(in)
	if err != nil {
		return nil, fmt.Errorf("parquet reader: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	defer tbl.Release()

	cols := make([]string, tbl.NumCols())
	for i := range cols {
		cols[i] = tbl.Schema().Field(i).Name
	}

	out := New(cols...)
	out.Rows = make([]Row, tbl.NumRows())
	for i := range out.Rows {
		out.Rows[i] = make(Row, len(cols))
	}

	for c, name := range cols {
		idx := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				out.Rows[idx][name] = valueAt(chunk, j)
				idx++
			}
		}
	}

	return out, nil
}

func inferKind(rows []Row, col string) columnKind {
	kind := columnKind(-1)
	for _, row := range rows {
		v := row[col]
		if v == nil {
			continue
		}
		k := kindOf(v)
		if kind == -1 {
			kind = k
			continue
		}
		if k != kind {
			return kindString
		}
	}
	if kind == -1 {
		return kindString
	}
	return kind
}

func kindOf(v any) columnKind {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt64
	case float32, float64:
		return kindFloat64
	case bool:
		return kindBool
	case time.Time:
		return kindTimestamp
	default:
		return kindString
	}
}

func arrowType(k columnKind) arrow.DataType {
	switch k {
	case kindInt64:
		return arrow.PrimitiveTypes.Int64
	case kindFloat64:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, k columnKind, v any) {
	if v == nil {
		b.AppendNull()
		return
	}

	switch k {
	case kindInt64:
		b.(*array.Int64Builder).Append(toInt64(v))
	case kindFloat64:
		b.(*array.Float64Builder).Append(toFloat64(v))
	case kindBool:
		b.(*array.BooleanBuilder).Append(v.(bool))
	case kindTimestamp:
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(v.(time.Time).UTC().UnixMicro()))
	default:
		b.(*array.StringBuilder).Append(Stringify(v))
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func valueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}

	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	default:
		return a.ValueStr(i)
	}
}
