package osmdb

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"

	"github.com/wegman-software/osmmaps-go/internal/logger"
)

var (
	// ErrUnknownFormat is returned for input files with an unrecognised suffix
	ErrUnknownFormat = errors.New("unknown OSM input format")
	// ErrNoBounds is returned when bounds can be neither read nor computed
	ErrNoBounds = errors.New("no bounds in input")
)

// Format identifies how an input file is encoded
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatXMLGzip
	FormatXMLBzip2
	FormatXMLZstd
	FormatPBF
	FormatSnapshot
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "osm"
	case FormatXMLGzip:
		return "osm.gz"
	case FormatXMLBzip2:
		return "osm.bz2"
	case FormatXMLZstd:
		return "osm.zst"
	case FormatPBF:
		return "pbf"
	case FormatSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// DetectFormat picks the decoder for path from its suffix. Directories are
// snapshots.
func DetectFormat(path string) Format {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return FormatSnapshot
	}
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".osm.pbf"), strings.HasSuffix(name, ".pbf"):
		return FormatPBF
	case strings.HasSuffix(name, ".osm.gz"):
		return FormatXMLGzip
	case strings.HasSuffix(name, ".osm.bz2"):
		return FormatXMLBzip2
	case strings.HasSuffix(name, ".osm.zst"):
		return FormatXMLZstd
	case strings.HasSuffix(name, ".osm"), strings.HasSuffix(name, ".xml"):
		return FormatXML
	default:
		return FormatUnknown
	}
}

// Load reads an OSM file or snapshot directory into memory
func Load(ctx context.Context, path string) (*Database, error) {
	log := logger.Get()
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if format == FormatSnapshot {
		return LoadSnapshot(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	start := time.Now()
	log.Info("Loading OSM data", zap.String("file", path), zap.Stringer("format", format),
		zap.Int64("bytes", size))

	cr := &countingReader{r: f}
	tickCtx, stopTicker := context.WithCancel(ctx)
	go NewProgressTicker(tickCtx, progressInterval, func() {
		read := cr.n.Load()
		fields := []zap.Field{zap.Float64("read_mb", float64(read)/(1024*1024))}
		if size > 0 {
			fields = append(fields, zap.Float64("percent", 100*float64(read)/float64(size)))
		}
		log.Info("Loading progress", fields...)
	}).Run()

	db, err := Decode(ctx, cr, format)
	stopTicker()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info("Loaded OSM data",
		zap.Int("nodes", len(db.nodes)),
		zap.Int("ways", len(db.ways)),
		zap.Int("relations", len(db.relations)),
		zap.Stringer("bounds", db.bounds),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return db, nil
}

// Decode reads a stream in the given format
func Decode(ctx context.Context, r io.Reader, format Format) (*Database, error) {
	switch format {
	case FormatPBF:
		return decodePBF(ctx, r)
	case FormatXML:
		return decodeXML(ctx, r)
	case FormatXMLGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		return decodeXML(ctx, zr)
	case FormatXMLBzip2:
		return decodeXML(ctx, bzip2.NewReader(r))
	case FormatXMLZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		return decodeXML(ctx, zr)
	default:
		return nil, ErrUnknownFormat
	}
}

type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func decodeXML(ctx context.Context, r io.Reader) (*Database, error) {
	s := osmxml.New(ctx, r)
	defer s.Close()
	return scanAll(NewBuilder(), s)
}

func decodePBF(ctx context.Context, r io.Reader) (*Database, error) {
	s := osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1))
	defer s.Close()

	b := NewBuilder()
	header, err := s.Header()
	if err != nil {
		return nil, fmt.Errorf("failed to read PBF header: %w", err)
	}
	if header.Bounds != nil {
		b.Add(header.Bounds)
	}
	return scanAll(b, s)
}

func scanAll(b *Builder, s scanner) (*Database, error) {
	for s.Scan() {
		b.Add(s.Object())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode OSM data: %w", err)
	}
	return b.Build()
}
