package parquet

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	mmap "github.com/edsrzf/mmap-go"
)

// Table is a Parquet file read fully into Arrow memory. The file stays
// memory mapped until Release.
type Table struct {
	arrow.Table
	f *os.File
	m mmap.MMap
}

// ReadTable maps path into memory and reads all of its columns
func ReadTable(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: empty parquet file", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}

	t := &Table{f: f, m: m}
	pf, err := file.NewParquetReader(bytes.NewReader(m))
	if err != nil {
		t.unmap()
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.unmap()
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		t.unmap()
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	t.Table = tbl
	return t, nil
}

func (t *Table) unmap() {
	t.m.Unmap()
	t.f.Close()
}

// Release frees the Arrow table and unmaps the file
func (t *Table) Release() {
	if t.Table != nil {
		t.Table.Release()
	}
	t.unmap()
}

// Column looks up a column by name
func (t *Table) Column(name string) (*arrow.Chunked, error) {
	idx := t.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, fmt.Errorf("missing column %q", name)
	}
	return t.Table.Column(idx[0]).Data(), nil
}

// Int64s returns a column as a flat slice
func (t *Table) Int64s(name string) ([]int64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.Int64)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not int64", name, chunk.DataType())
		}
		out = append(out, c.Int64Values()...)
	}
	return out, nil
}

// Int32s returns a column as a flat slice
func (t *Table) Int32s(name string) ([]int32, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.Int32)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not int32", name, chunk.DataType())
		}
		out = append(out, c.Int32Values()...)
	}
	return out, nil
}

// Float64s returns a column as a flat slice
func (t *Table) Float64s(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not float64", name, chunk.DataType())
		}
		out = append(out, c.Float64Values()...)
	}
	return out, nil
}

// Strings returns a column as a flat slice. Values are copied out of Arrow
// memory so they outlive Release.
func (t *Table) Strings(name string) ([]string, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.String)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not string", name, chunk.DataType())
		}
		for i := 0; i < c.Len(); i++ {
			out = append(out, strings.Clone(c.Value(i)))
		}
	}
	return out, nil
}

// Bools returns a column as a flat slice
func (t *Table) Bools(name string) ([]bool, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.Boolean)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not bool", name, chunk.DataType())
		}
		for i := 0; i < c.Len(); i++ {
			out = append(out, c.Value(i))
		}
	}
	return out, nil
}

// Binaries returns a column as a flat slice of copied byte slices
func (t *Table) Binaries(name string) ([][]byte, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, col.Len())
	for _, chunk := range col.Chunks() {
		c, ok := chunk.(*array.Binary)
		if !ok {
			return nil, fmt.Errorf("column %q is %s, not binary", name, chunk.DataType())
		}
		for i := 0; i < c.Len(); i++ {
			out = append(out, bytes.Clone(c.Value(i)))
		}
	}
	return out, nil
}
