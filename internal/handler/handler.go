// SPDX-License-Identifier: MPL-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bidsflow/bidsflow/internal/diag"
	"github.com/bidsflow/bidsflow/internal/entity"
	"github.com/bidsflow/bidsflow/internal/record"
	"github.com/bidsflow/bidsflow/internal/setconfig"
)

// ErrUnknownKind is returned by New for a SetConfig without a set variant.
var ErrUnknownKind = errors.New("set configuration has no set type")

type (
	// Handler groups the files of one configuration key.
	Handler interface {
		// Key returns the configuration key the handler serves.
		Key() string
		// Handle groups files into fragments, one per group key.
		Handle(ctx context.Context, files []*entity.File) (*Result, error)
	}

	// Env is the shared context injected into every handler.
	Env struct {
		// LoopOver lists the entities forming group keys.
		LoopOver []string
		// Layout relativizes paths and folds files into items.
		Layout Layout
		// Logger receives a debug summary per handler run. Nil disables it.
		Logger *slog.Logger
	}

	// Fragment is one handler's contribution to one record.
	Fragment struct {
		Key    record.GroupKey
		Suffix string
		Data   any
		Files  []string
	}

	// Result is the output of one handler run.
	Result struct {
		Fragments   []Fragment
		Diagnostics []diag.Diagnostic
	}

	// base carries what every handler needs.
	base struct {
		cfg *setconfig.SetConfig
		env Env
	}
)

// New returns the handler for cfg's set variant.
func New(cfg *setconfig.SetConfig, env Env) (Handler, error) {
	if env.Layout == nil {
		env.Layout = NewLayout("")
	}
	b := base{cfg: cfg, env: env}
	switch cfg.Kind() {
	case setconfig.KindPlain:
		return &plainHandler{base: b, set: cfg.Plain}, nil
	case setconfig.KindNamed:
		return &namedHandler{base: b, set: cfg.Named}, nil
	case setconfig.KindSequential:
		return &sequentialHandler{base: b, set: cfg.Sequential}, nil
	case setconfig.KindMixed:
		return &mixedHandler{base: b, set: cfg.Mixed}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Key)
	}
}

// Key implements Handler.
func (b base) Key() string { return b.cfg.Key }

// items folds files and starts a result carrying layout diagnostics.
func (b base) items(ctx context.Context, files []*entity.File) ([]Item, *Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	items, diags := b.env.Layout.Items(b.cfg.Key, files)
	return items, &Result{Diagnostics: diags}, nil
}

// groupByKey buckets items by group key; keys come back in record order.
func (b base) groupByKey(items []Item) ([]record.GroupKey, map[string][]Item) {
	var keys []record.GroupKey
	buckets := make(map[string][]Item)
	for _, it := range items {
		k := record.KeyOf(it, b.env.LoopOver)
		s := k.String()
		if _, ok := buckets[s]; !ok {
			keys = append(keys, k)
		}
		buckets[s] = append(buckets[s], it)
	}
	slices.SortFunc(keys, record.GroupKey.Compare)
	return keys, buckets
}

func (b base) fragment(key record.GroupKey, data any, files []string) Fragment {
	slices.Sort(files)
	return Fragment{Key: key, Suffix: b.cfg.Key, Data: data, Files: slices.Compact(files)}
}

func (b base) debug(it Item, code diag.Code, format string, args ...any) diag.Diagnostic {
	return diag.Debugf(code, b.cfg.Key, it.Path, format, args...)
}

func (b base) warn(code diag.Code, format string, args ...any) diag.Diagnostic {
	return diag.Warnf(code, b.cfg.Key, format, args...)
}

// missingRequired returns the required groups absent from present, in
// declaration order.
func (b base) missingRequired(present map[string]bool) []string {
	var missing []string
	for _, r := range b.cfg.Required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

func (b base) summarize(ctx context.Context, res *Result, files int) {
	if b.env.Logger == nil {
		return
	}
	b.env.Logger.DebugContext(ctx, "handler finished",
		"key", b.cfg.Key,
		"kind", b.cfg.Kind().String(),
		"files", files,
		"fragments", len(res.Fragments),
		"diagnostics", len(res.Diagnostics),
	)
}
