package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/sciradar/pkg/analysis"
	"github.com/OFFIS-RIT/sciradar/pkg/common"
	"github.com/OFFIS-RIT/sciradar/pkg/cooccurrence"
	"github.com/OFFIS-RIT/sciradar/pkg/graph"
	"github.com/OFFIS-RIT/sciradar/pkg/loader"
	"github.com/OFFIS-RIT/sciradar/pkg/logger"
	"github.com/OFFIS-RIT/sciradar/pkg/snapshot"
	"github.com/OFFIS-RIT/sciradar/pkg/store"
	"github.com/OFFIS-RIT/sciradar/pkg/window"
)

// Request describes one generation run: a dataset, a network type and the
// months [Start, End) whose growing windows are built and analyzed.
type Request struct {
	Dataset  string
	Network  common.NetworkType
	Start    window.Month
	End      window.Month
	UseCache bool
}

// Outcome is the result of a run together with per-window bookkeeping.
type Outcome struct {
	Result    analysis.Result
	Windows   int
	CacheHits int
	// Failed lists windows whose batch could not be loaded or merged.
	// Nothing is cached or analyzed for them.
	Failed []string
	// Skipped lists windows whose snapshot had no edges.
	Skipped []string
}

// Generator drives the window sequence of a dataset: it loads each batch,
// computes co-occurrences, merges them into the growing graph, caches the
// snapshot and analyzes it.
type Generator struct {
	loader  loader.PublicationLoader
	cache   *snapshot.Cache
	reports store.ReportStore
	workers int
}

type NewGeneratorParams struct {
	Loader loader.PublicationLoader
	Cache  *snapshot.Cache
	// Reports receives the analysis report after the last window. Optional.
	Reports store.ReportStore
	// Workers bounds the co-occurrence fan-out. Zero means GOMAXPROCS.
	Workers int
}

func NewGenerator(params NewGeneratorParams) (*Generator, error) {
	if params.Loader == nil {
		return nil, errors.New("publication loader is required")
	}
	if params.Cache == nil {
		return nil, errors.New("snapshot cache is required")
	}
	return &Generator{
		loader:  params.Loader,
		cache:   params.Cache,
		reports: params.Reports,
		workers: params.Workers,
	}, nil
}

// run holds the state threaded through the windows of one Generate call.
type run struct {
	req     Request
	builder *graph.Builder
	series  *analysis.Series
	prevEnd window.Month
	out     *Outcome
}

// Generate builds and analyzes every growing window of req. A failing window
// is logged and recorded in Outcome.Failed; the run continues with the last
// good graph. Only an invalid request, cancellation or a failure to save the
// report abort it.
func (g *Generator) Generate(ctx context.Context, req Request) (*Outcome, error) {
	if req.Dataset == "" {
		return nil, errors.New("dataset is required")
	}
	if _, err := common.ParseNetworkType(string(req.Network)); err != nil {
		return nil, err
	}
	windows, err := window.Growing(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	r := &run{
		req:     req,
		builder: graph.NewBuilder(req.Network.TracksDates()),
		series:  analysis.NewSeries(),
		prevEnd: req.Start,
		out:     &Outcome{},
	}

	started := time.Now()
	logger.Info("[Network] Generating networks", "dataset", req.Dataset, "network", req.Network, "start", req.Start, "end", req.End)

	for w := range windows {
		select {
		case <-ctx.Done():
			return r.finish(), ctx.Err()
		default:
		}

		if err := g.window(ctx, r, w); err != nil {
			if ctx.Err() != nil {
				return r.finish(), ctx.Err()
			}
			logger.Warn("[Network] Window failed", "dataset", req.Dataset, "network", req.Network, "window", w.Label(), "err", err)
			r.out.Failed = append(r.out.Failed, w.Label())
		}
	}

	out := r.finish()
	logger.Info("[Network] Finished", "dataset", req.Dataset, "network", req.Network,
		"windows", out.Windows, "analysed", len(out.Result), "cache_hits", out.CacheHits,
		"failed", len(out.Failed), "duration", time.Since(started))

	if g.reports != nil {
		if err := g.reports.SaveReport(ctx, req.Dataset, string(req.Network), out.Result); err != nil {
			return out, fmt.Errorf("failed to save report: %w", err)
		}
	}
	return out, nil
}

func (r *run) finish() *Outcome {
	r.out.Result = r.series.Result()
	r.out.Skipped = r.series.Skipped()
	return r.out
}

// window processes the cumulative window w = [req.Start, w.End).
func (g *Generator) window(ctx context.Context, r *run, w window.Range) error {
	r.out.Windows++
	key := snapshot.Key(r.req.Dataset, r.req.Network, w)

	snap, hit, err := g.cache.LoadOrCompute(ctx, key, r.req.UseCache, func(ctx context.Context) (*graph.Graph, error) {
		return g.compute(ctx, r, w)
	})
	if err != nil {
		var dateErr *graph.DateParseError
		if errors.As(err, &dateErr) {
			// The batch can never merge; move past it.
			r.prevEnd = w.End
		}
		return err
	}

	if hit {
		r.out.CacheHits++
		r.builder.Adopt(snap)
		snap = r.builder.Snapshot()
	}
	r.prevEnd = w.End

	r.series.Add(w.Label(), snap)
	return nil
}

// compute merges the records of [prevEnd, w.End) into the growing graph and
// returns an independent copy of it.
func (g *Generator) compute(ctx context.Context, r *run, w window.Range) (*graph.Graph, error) {
	batch := window.Range{Start: r.prevEnd, End: w.End}
	network := r.req.Network

	var pubs []common.Publication
	if !batch.Empty() {
		var err error
		pubs, err = g.loader.LoadPublications(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to load publications for %s: %w", batch.Label(), err)
		}
	}

	edges, err := cooccurrence.Compute(ctx, pubs, network.Field(), cooccurrence.Options{
		Workers:    g.workers,
		TrackDates: network.TracksDates(),
	})
	if err != nil {
		return nil, err
	}

	var descriptors map[string]common.Descriptor
	if network.UsesDescriptors() {
		descriptors = map[string]common.Descriptor{}
		if !w.Empty() {
			loaded, err := g.loader.LoadDescriptors(ctx, w)
			if err != nil {
				return nil, fmt.Errorf("failed to load descriptors for %s: %w", w.Label(), err)
			}
			if loaded != nil {
				descriptors = loaded
			}
		}
	}

	if err := r.builder.Merge(edges, descriptors); err != nil {
		return nil, err
	}

	logger.Debug("[Network] Merged window", "dataset", r.req.Dataset, "network", network,
		"window", w.Label(), "records", len(pubs), "edges", len(edges))
	return r.builder.Snapshot(), nil
}
