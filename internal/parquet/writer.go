package parquet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/paulmach/osm"
)

// DefaultBatchSize is the number of rows buffered before a record is written
const DefaultBatchSize = 10000

// TagsToJSON converts OSM tags to a JSON object string
func TagsToJSON(tags osm.Tags) string {
	if len(tags) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(tags.Map())
	return string(b)
}

// TagsFromJSON parses a string written by TagsToJSON. Keys come back sorted.
func TagsFromJSON(s string) (osm.Tags, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("invalid tags %q: %w", s, err)
	}
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	slices.SortFunc(tags, func(a, b osm.Tag) int { return strings.Compare(a.Key, b.Key) })
	return tags, nil
}

// tableWriter buffers rows in a record builder and writes a zstd
// compressed Parquet file in batches.
type tableWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	total     int64
}

func newTableWriter(path string, schema *arrow.Schema, batchSize int) (*tableWriter, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
	)

	writer, err := pqarrow.NewFileWriter(schema, f, writerProps, pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &tableWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, schema),
		batchSize: batchSize,
	}, nil
}

// rowAdded is called after the fields of one row have been appended
func (w *tableWriter) rowAdded() error {
	w.count++
	w.total++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

func (w *tableWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return err
}

// Rows returns the number of rows written so far
func (w *tableWriter) Rows() int64 { return w.total }

// Close flushes pending rows and closes the file
func (w *tableWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		w.file.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return err
	}
	// the Parquet writer may already have closed the file
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func (w *tableWriter) int64Field(i int) *array.Int64Builder     { return w.builder.Field(i).(*array.Int64Builder) }
func (w *tableWriter) int32Field(i int) *array.Int32Builder     { return w.builder.Field(i).(*array.Int32Builder) }
func (w *tableWriter) float64Field(i int) *array.Float64Builder { return w.builder.Field(i).(*array.Float64Builder) }
func (w *tableWriter) stringField(i int) *array.StringBuilder   { return w.builder.Field(i).(*array.StringBuilder) }
func (w *tableWriter) binaryField(i int) *array.BinaryBuilder  { return w.builder.Field(i).(*array.BinaryBuilder) }
func (w *tableWriter) boolField(i int) *array.BooleanBuilder    { return w.builder.Field(i).(*array.BooleanBuilder) }
