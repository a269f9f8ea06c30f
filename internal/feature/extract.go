package feature

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/osmdb"
	"github.com/wegman-software/osmmaps-go/internal/style"
)

// DiagnosticObserver receives closer diagnostics as they are produced. It
// is called from several goroutines.
type DiagnosticObserver interface {
	ObserveDiagnostics(diags []closer.Diagnostic)
}

// Options configures Extract
type Options struct {
	Workers             int     // parallel relation workers, default GOMAXPROCS
	MaxBoundaryDistance float64 // metres, 0 for no limit
	Classifier          Classifier
	Style               *style.Config
	Coastline           bool // also run AnalyzeCoastline
	Observer            DiagnosticObserver
	Logger              *zap.Logger
}

// Stats counts what Extract produced
type Stats struct {
	WayFeatures      int
	RelationFeatures int
	Relations        int // relations that were closed
	Unbounded        int
	Duration         time.Duration
}

// Result holds the extracted features in input order: way features, then
// relation features, then coastline features.
type Result struct {
	Features    []Feature
	Diagnostics []closer.Diagnostic
	IsIsland    bool
	Stats       Stats
}

// Extract finds all features in db
func Extract(ctx context.Context, db *osmdb.Database, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var wayFilter, relFilter *style.Filter
	if opts.Style != nil {
		wayFilter = style.NewFilter(opts.Style.Ways)
		relFilter = style.NewFilter(opts.Style.Relations)
	}

	start := time.Now()
	res := &Result{}
	observe := func(diags []closer.Diagnostic) {
		if opts.Observer != nil && len(diags) > 0 {
			opts.Observer.ObserveDiagnostics(diags)
		}
	}

	wf := NewWayFactory(db, opts.Classifier)
	for i, w := range db.Ways() {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !wayFilter.MatchOSMTags(w.Tags) {
			continue
		}
		f, diags, err := wf.Feature(w)
		if err != nil {
			return nil, err
		}
		observe(diags)
		res.Diagnostics = append(res.Diagnostics, diags...)
		if f.Type != Unknown {
			res.Features = append(res.Features, f)
		}
	}
	res.Stats.WayFeatures = len(res.Features)
	log.Info("Extracted way features", zap.Int("features", res.Stats.WayFeatures))

	rf := NewRelationFactory(db, opts.MaxBoundaryDistance, log)
	rels := db.Relations()
	results := make([]RelationResult, len(rels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range rels {
		if !Wanted(r.Tags) || !relFilter.MatchOSMTags(r.Tags) {
			continue
		}
		res.Stats.Relations++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = rf.Features(r)
			observe(results[i].Diagnostics)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rr := range results {
		res.Features = append(res.Features, rr.Features...)
		res.Diagnostics = append(res.Diagnostics, rr.Diagnostics...)
		res.Stats.RelationFeatures += len(rr.Features)
	}
	log.Info("Closed relations",
		zap.Int("relations", res.Stats.Relations),
		zap.Int("features", res.Stats.RelationFeatures),
		zap.Int("workers", workers))

	if opts.Coastline {
		cr := AnalyzeCoastline(db, res.Features, opts.MaxBoundaryDistance, log)
		observe(cr.Diagnostics)
		res.Features = append(res.Features, cr.Features...)
		res.Diagnostics = append(res.Diagnostics, cr.Diagnostics...)
		res.IsIsland = cr.IsIsland
	}

	for _, f := range res.Features {
		if !f.Bounded {
			res.Stats.Unbounded++
		}
	}
	res.Stats.Duration = time.Since(start)
	return res, nil
}
