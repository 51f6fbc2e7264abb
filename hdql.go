// Package hdql is a semantic query engine over hyperdimensional entity
// embeddings. Queries are written in a small declarative language, compiled
// into vector operation plans, and executed against a sealed embedding
// store with exact or approximate nearest-neighbor backends.
//
// # Quick Start
//
//	builder, _ := store.NewBuilder(512)
//	builder.Add(store.EntityVector{
//	    EntityType: store.EntityCommand,
//	    Identifier: "install-deps",
//	    Embedding:  embedding,
//	})
//	// ... more entities ...
//	kb, _ := builder.Build()
//
//	engine, _ := hdql.New(kb)
//	res, err := engine.Query(ctx, `similar_to(command("install-deps"), top_k=5)`)
//
// Results come back as typed values: ranked matches, recommendations with
// trade-off analysis, or aggregate scalars. Use result.Encode or
// Engine.Render to serialize them.
package hdql

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hyperdim/hdql/cache"
	"github.com/hyperdim/hdql/executor"
	"github.com/hyperdim/hdql/index"
	"github.com/hyperdim/hdql/index/flat"
	"github.com/hyperdim/hdql/index/hnsw"
	"github.com/hyperdim/hdql/index/ivf"
	"github.com/hyperdim/hdql/planner"
	"github.com/hyperdim/hdql/query"
	"github.com/hyperdim/hdql/result"
	"github.com/hyperdim/hdql/store"
)

// Engine parses, plans, and executes queries over a sealed store. It is
// safe for concurrent use; the store and indexes are immutable once built.
type Engine struct {
	store   *store.Store
	indexes map[index.Kind]index.Index
	cache   *cache.ResultCache
	opts    options
}

// New creates an engine over a sealed store. The backend selected for the
// store's size is built eagerly; a flat index is always available so exact
// queries never fall back to an unindexed scan.
func New(s *store.Store, optFns ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("store must not be nil")
	}

	opts := applyOptions(optFns)

	indexes, err := BuildIndexes(s, index.KindFlat, index.Select(s.Len(), false))
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:   s,
		indexes: indexes,
		cache:   cache.New(opts.cacheSize),
		opts:    opts,
	}, nil
}

// BuildIndexes builds the requested backends over a sealed store's
// embeddings. Duplicate kinds are built once.
func BuildIndexes(s *store.Store, kinds ...index.Kind) (map[index.Kind]index.Index, error) {
	vectors := make([][]float32, s.Len())
	for ord := range uint32(s.Len()) {
		entity, ok := s.ByOrdinal(ord)
		if !ok {
			return nil, fmt.Errorf("store has no entity at ordinal %d", ord)
		}
		vectors[ord] = entity.Embedding
	}

	indexes := make(map[index.Kind]index.Index, len(kinds))
	for _, kind := range kinds {
		if _, ok := indexes[kind]; ok {
			continue
		}

		var (
			idx index.Index
			err error
		)
		switch kind {
		case index.KindFlat:
			idx, err = flat.Build(s.Dimension(), vectors)
		case index.KindIVF:
			idx, err = ivf.Build(s.Dimension(), vectors)
		case index.KindHNSW:
			idx, err = hnsw.Build(s.Dimension(), vectors)
		default:
			err = fmt.Errorf("unknown index kind %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("building %s index: %w", kind, err)
		}

		indexes[kind] = idx
	}

	return indexes, nil
}

// Query runs a query end to end: parse, validate, compile, execute, and
// shape the outcome into a typed result. Per-call options override the
// engine defaults for this invocation only.
func (e *Engine) Query(ctx context.Context, text string, optFns ...Option) (result.QueryResult, error) {
	opts := e.opts
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	start := time.Now()
	res, err := e.run(ctx, text, &opts, start)

	elapsed := time.Since(start)
	e.opts.metrics.RecordQuery(elapsed, err)
	e.opts.logger.LogQuery(ctx, text, elapsed, err)

	return res, err
}

func (e *Engine) run(ctx context.Context, text string, opts *options, start time.Time) (result.QueryResult, error) {
	if opts.limiter != nil && !opts.limiter.Allow() {
		return nil, ErrRateLimited
	}

	root, err := query.Parse(text)
	e.opts.logger.LogParse(ctx, text, err)
	if err != nil {
		return nil, translateError(err)
	}

	if err := query.Validate(root, e.store.HasMetric); err != nil {
		return nil, translateError(err)
	}

	// The canonical form collapses whitespace and formatting variants of
	// the same query onto one cache entry.
	key := cache.Key{Query: query.Unparse(root), Variant: opts.variant()}
	if cached, ok := e.cache.Get(key); ok {
		e.opts.metrics.RecordCache(true)
		e.opts.logger.LogCacheHit(ctx, key.Query)
		return cached, nil
	}
	e.opts.metrics.RecordCache(false)

	plan, err := planner.Compile(root, e.store.Stats(), func(p *planner.Options) {
		p.TopK = opts.topK
		p.AllowedIndexes = opts.allowedIndexes
	})
	if err != nil {
		return nil, translateError(err)
	}
	e.opts.metrics.RecordPlan(len(plan.Ops), plan.EstimatedCost)
	e.opts.logger.LogPlan(ctx, len(plan.Ops), plan.Index.String(), plan.EstimatedCost)

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	exec := executor.New(e.store, e.indexes, func(o *executor.Options) {
		o.Strict = opts.strict
		o.Parallel = opts.parallel
	})

	out, err := exec.Execute(ctx, plan)
	if err != nil {
		return nil, translateError(err)
	}

	res := result.Build(out, time.Since(start))

	// Optimization queries that converge poorly come back warning-flagged;
	// downgrade them to a coverage analysis instead of a ranking the
	// warning already disclaims.
	if rr, ok := res.(*result.RecommendationResult); ok && rr.Warning != "" {
		res = result.Analyze(rr)
	}

	e.cache.Set(key, res)
	return res, nil
}

// Explain compiles a query without executing it and returns the plan's
// step-by-step description with cost and index hints.
func (e *Engine) Explain(text string, optFns ...Option) (string, error) {
	opts := e.opts
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	root, err := query.Parse(text)
	if err != nil {
		return "", translateError(err)
	}
	if err := query.Validate(root, e.store.HasMetric); err != nil {
		return "", translateError(err)
	}

	plan, err := planner.Compile(root, e.store.Stats(), func(p *planner.Options) {
		p.TopK = opts.topK
		p.AllowedIndexes = opts.allowedIndexes
	})
	if err != nil {
		return "", translateError(err)
	}

	return plan.Explain(), nil
}

// Render encodes a result in the engine's configured format.
func (e *Engine) Render(w io.Writer, res result.QueryResult) error {
	return result.Encode(w, res, e.opts.format)
}

// InvalidateCache drops all cached results. Callers that rebuild the engine
// over a new store snapshot do not need this; it exists for deployments
// that swap attribute data out of band.
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate(nil)
}

// CacheStats reports result cache hit and miss counts.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// Store returns the engine's sealed store.
func (e *Engine) Store() *store.Store {
	return e.store
}
