// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/handler"
	"github.com/bidsflow/bidsflow/internal/record"
	"github.com/bidsflow/bidsflow/internal/setconfig"
	"github.com/bidsflow/bidsflow/internal/sink"
)

// DefaultBroadcastEntity is the loop-over entity whose NA value marks
// task-independent records.
const DefaultBroadcastEntity = "task"

var (
	// ErrNoRecords is returned when a run produces no records at all.
	ErrNoRecords = errors.New("no records produced: no file matched any configured suffix")
	// ErrDuplicateFragment is returned when two fragments claim the same group key and key.
	ErrDuplicateFragment = errors.New("duplicate fragment")
)

type (
	// Options configures an Engine.
	Options struct {
		// Workers bounds concurrent handlers. Zero means GOMAXPROCS.
		Workers int
		// BroadcastEntity overrides DefaultBroadcastEntity.
		BroadcastEntity string
		// Layout relativizes paths. Defaults to handler.NewLayout("").
		Layout handler.Layout
		// Logger receives progress and diagnostics. Defaults to slog.Default().
		Logger *slog.Logger
	}

	// Engine applies one configuration document to file lists.
	Engine struct {
		doc       *setconfig.Document
		handlers  []handler.Handler
		workers   int
		broadcast string
		logger    *slog.Logger
	}

	// Result is the outcome of one run.
	Result struct {
		// RunID identifies the run in logs and sinks.
		RunID string
		// Records are the surviving records in group key order.
		Records []record.ChannelRecord
		// Diagnostics collects configuration warnings and handler findings.
		Diagnostics []diag.Diagnostic
		// Duration is the wall time of the run.
		Duration time.Duration
	}
)

// New builds an Engine with one handler per configuration key.
func New(doc *setconfig.Document, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Layout == nil {
		opts.Layout = handler.NewLayout("")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.BroadcastEntity == "" {
		opts.BroadcastEntity = DefaultBroadcastEntity
	}

	env := handler.Env{LoopOver: doc.LoopOver, Layout: opts.Layout, Logger: opts.Logger}
	e := &Engine{
		doc:       doc,
		workers:   opts.Workers,
		broadcast: entity.ShortName(opts.BroadcastEntity),
		logger:    opts.Logger,
	}
	for _, cfg := range doc.Sets {
		h, err := handler.New(cfg, env)
		if err != nil {
			return nil, err
		}
		e.handlers = append(e.handlers, h)
	}
	return e, nil
}

// Run groups files and returns the surviving records. On ErrNoRecords the
// returned Result still carries the diagnostics explaining the empty outcome.
func (e *Engine) Run(ctx context.Context, files []*entity.File) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	logger := e.logger.With("run", res.RunID)
	logger.InfoContext(ctx, "grouping started", "files", len(files), "keys", len(e.handlers), "workers", e.workers)

	res.Diagnostics = append(res.Diagnostics, e.doc.Warnings...)

	routed, unrouted := e.route(files)
	res.Diagnostics = append(res.Diagnostics, unrouted...)

	results, err := e.handle(ctx, routed)
	if err != nil {
		return nil, err
	}

	var fragments []handler.Fragment
	for _, r := range results {
		fragments = append(fragments, r.Fragments...)
		res.Diagnostics = append(res.Diagnostics, r.Diagnostics...)
	}

	records, err := unify(fragments, e.doc.LoopOver)
	if err != nil {
		return nil, err
	}

	records, bdiags := e.broadcastRecords(records)
	res.Diagnostics = append(res.Diagnostics, bdiags...)
	res.Records = records
	res.Duration = time.Since(start)

	diag.Log(ctx, logger, res.Diagnostics)

	if len(records) == 0 {
		return res, ErrNoRecords
	}
	logger.InfoContext(ctx, "grouping finished",
		"records", len(records),
		"warnings", diag.Count(res.Diagnostics, diag.SeverityWarning),
		"duration", res.Duration,
	)
	return res, nil
}

// Process runs the engine and drains the records into s.
func (e *Engine) Process(ctx context.Context, files []*entity.File, s sink.Sink) (*Result, error) {
	res, err := e.Run(ctx, files)
	if err != nil {
		return res, err
	}
	if err := sink.Drain(ctx, res.Records, s); err != nil {
		return res, err
	}
	return res, nil
}

// route assigns each file to the handlers configured for its suffix.
func (e *Engine) route(files []*entity.File) ([][]*entity.File, []diag.Diagnostic) {
	bySuffix := make(map[string][]*entity.File)
	for _, f := range files {
		bySuffix[f.Suffix()] = append(bySuffix[f.Suffix()], f)
	}

	index := make(map[*setconfig.SetConfig]int, len(e.doc.Sets))
	for i, cfg := range e.doc.Sets {
		index[cfg] = i
	}

	routed := make([][]*entity.File, len(e.doc.Sets))
	var diags []diag.Diagnostic
	for _, suffix := range slices.Sorted(maps.Keys(bySuffix)) {
		cfgs := e.doc.ForSuffix(suffix)
		if len(cfgs) == 0 {
			diags = append(diags, diag.Debugf(diag.CodeUnmatchedSuffix, suffix, "",
				"%d file(s) with suffix %q have no configuration", len(bySuffix[suffix]), suffix))
			continue
		}
		for _, cfg := range cfgs {
			routed[index[cfg]] = bySuffix[suffix]
		}
	}
	return routed, diags
}

// handle runs every handler concurrently. It returns only after all handlers
// finished, so results are complete before unification.
func (e *Engine) handle(ctx context.Context, routed [][]*entity.File) ([]*handler.Result, error) {
	results := make([]*handler.Result, len(e.handlers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, h := range e.handlers {
		g.Go(func() error {
			r, err := h.Handle(gctx, routed[i])
			if err != nil {
				return fmt.Errorf("handler %q: %w", h.Key(), err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// unify merges fragments sharing a group key into records in key order.
func unify(fragments []handler.Fragment, loopOver []string) ([]record.ChannelRecord, error) {
	byKey := make(map[string]record.ChannelRecord)
	for _, f := range fragments {
		frag := record.New(f.Key, loopOver).WithSuffix(f.Suffix, f.Data, f.Files)
		k := f.Key.String()
		r, ok := byKey[k]
		if !ok {
			byKey[k] = frag
			continue
		}
		merged, err := r.Merge(frag)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDuplicateFragment, err)
		}
		byKey[k] = merged
	}
	return sortRecords(slices.Collect(maps.Values(byKey))), nil
}

func sortRecords(records []record.ChannelRecord) []record.ChannelRecord {
	slices.SortFunc(records, func(a, b record.ChannelRecord) int { return a.Key().Compare(b.Key()) })
	return records
}
