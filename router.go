package polyquery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/adapter/document"
	"github.com/polyquery/polyquery/adapter/relational"
	"github.com/polyquery/polyquery/adapter/search"
	"github.com/polyquery/polyquery/dialect"
	"github.com/polyquery/polyquery/event"
	"github.com/polyquery/polyquery/guardrail"
	"github.com/polyquery/polyquery/lookup"
	"github.com/polyquery/polyquery/reconnect"
	"github.com/polyquery/polyquery/sanitize"
	"github.com/polyquery/polyquery/schema"
	"github.com/polyquery/polyquery/timestamp"
)

// Router is the single entry point embedding programs talk to: it
// detects the backend from the connection URI, owns the one adapter
// instance for the process, and threads every call through
// sanitize -> guardrail -> timestamp-inject -> adapter -> receipt ->
// event-emit before returning.
type Router struct {
	cfg           Config
	adp           adapter.Adapter
	registry      *schema.Registry
	bus           *event.Bus
	rules         guardrail.Rules
	tsCfg         timestamp.Config
	cache         Cache
	sanitizeRules []sanitize.TransformRule
	describeSF    singleflight.Group

	reconnectMu  sync.Mutex
	reconnecting bool
}

// New detects the backend from cfg.URI, constructs and connects the
// matching adapter, and returns a ready-to-use Router. registry may be
// nil (no field-whitelist or document-validation checks are
// performed).
func New(ctx context.Context, cfg Config, registry *schema.Registry) (*Router, error) {
	adp, err := newAdapter(cfg)
	if err != nil {
		return nil, err
	}

	var logger = event.NewLogger()
	if !cfg.LoggingEnabled() {
		logger = nil
	}

	r := &Router{
		cfg:      cfg,
		adp:      adp,
		registry: registry,
		bus:      event.New(logger, time.Duration(cfg.SlowQueryMs)*time.Millisecond),
		rules:    guardrail.DefaultRules(),
		tsCfg:    timestampConfigFrom(cfg),
	}

	if err := r.connect(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// SetSanitizeRules attaches the caller-supplied value-transform rules
// (sanitize.TransformRule carries a function, so it can't be decoded
// from config the way the rest of Config is).
func (r *Router) SetSanitizeRules(rules []sanitize.TransformRule) {
	r.sanitizeRules = rules
}

// SetCache attaches an optional read-through cache for QueryOne and
// QueryMany. A nil cache (the default) disables caching regardless of
// Config.Cache.Enabled.
func (r *Router) SetCache(c Cache) {
	r.cache = c
}

func timestampConfigFrom(cfg Config) timestamp.Config {
	if !cfg.Timestamps.Enabled {
		return timestamp.Disabled()
	}
	if cfg.Timestamps.CreatedAtField == "" && cfg.Timestamps.UpdatedAtField == "" {
		return timestamp.Default()
	}
	created, updated := cfg.Timestamps.CreatedAtField, cfg.Timestamps.UpdatedAtField
	if created == "" {
		created = "created_at"
	}
	if updated == "" {
		updated = "updated_at"
	}
	return timestamp.Custom(created, updated)
}

// newAdapter detects the backend from uri's scheme and returns an
// unconnected adapter. Any other prefix raises CONNECTION_FAILED with
// a fix listing valid prefixes.
func newAdapter(cfg Config) (adapter.Adapter, error) {
	uri := cfg.URI
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return document.New(uri, cfg.DBName), nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return relational.New(dialect.Postgres, uri, cfg.Guardrails, cfg.Verbose())
	case strings.HasPrefix(uri, "mysql://"):
		return relational.New(dialect.MySQL, strings.TrimPrefix(uri, "mysql://"), cfg.Guardrails, cfg.Verbose())
	case strings.HasPrefix(uri, "mssql://"):
		return relational.New(dialect.MSSQL, uri, cfg.Guardrails, cfg.Verbose())
	case strings.HasPrefix(uri, "file:"), strings.HasPrefix(uri, "sqlite:"):
		return relational.New(dialect.SQLite, stripSQLitePrefix(uri), cfg.Guardrails, cfg.Verbose())
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return search.New([]string{uri}), nil
	default:
		return nil, NewError(CodeConnectionFailed,
			fmt.Sprintf("unrecognized connection URI prefix in %q", uri),
			"use one of: mongodb://, mongodb+srv://, postgres(ql)://, mysql://, mssql://, file:/sqlite:, http(s)://",
		)
	}
}

func stripSQLitePrefix(uri string) string {
	if strings.HasPrefix(uri, "sqlite:") {
		return strings.TrimPrefix(uri, "sqlite:")
	}
	return strings.TrimPrefix(uri, "file:")
}

func (r *Router) connect(ctx context.Context) error {
	if err := r.adp.Connect(ctx); err != nil {
		return err
	}
	r.bus.Emit(event.Event{Kind: event.KindConnected, Backend: r.adp.Backend()})

	if r.cfg.Schema && r.registry != nil {
		if ensurer, ok := r.adp.(adapter.SchemaEnsurer); ok {
			collections := r.registeredCollections()
			if err := ensurer.EnsureCollections(ctx, collections); err != nil {
				return err
			}
			if err := ensurer.EnsureIndexes(ctx, collections); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Router) registeredCollections() []*schema.Collection {
	names := r.registry.Names()
	out := make([]*schema.Collection, 0, len(names))
	for _, n := range names {
		if c, ok := r.registry.Lookup(n); ok {
			out = append(out, c)
		}
	}
	return out
}

// Close releases the adapter's underlying connection and publishes a
// shutdown event.
func (r *Router) Close(ctx context.Context) error {
	err := r.adp.Close(ctx)
	r.bus.Emit(event.Event{Kind: event.KindShutdown, Backend: r.adp.Backend()})
	return err
}

// Status reports the adapter's connection status.
func (r *Router) Status(ctx context.Context) Status {
	return r.adp.Status(ctx)
}

// EventBus exposes the bus for callers to register handlers on.
func (r *Router) EventBus() *event.Bus { return r.bus }

// Backend reports the detected backend name ("mongo", "postgres",
// "mysql", "mssql", "sqlite", "elastic").
func (r *Router) Backend() string { return r.adp.Backend() }

func (r *Router) collectionSchema(collection string) *schema.Collection {
	if r.registry == nil {
		return nil
	}
	c, _ := r.registry.Lookup(collection)
	return c
}

// sanitizeFilter applies the field whitelist, $regex complexity
// check, and (for the search-engine backend) the index-name and
// reserved-field checks, in that order. A Config with Sanitize disabled is
// the identity.
func (r *Router) sanitizeFilter(collection string, f Filter) error {
	if !r.cfg.Sanitize {
		return nil
	}
	if err := sanitize.CheckFields(f, r.collectionSchema(collection)); err != nil {
		return err
	}
	for _, pattern := range regexPatterns(f) {
		if err := sanitize.CheckRegexComplexity(pattern); err != nil {
			return err
		}
	}
	if r.adp.Backend() == "elastic" {
		if err := sanitize.CheckIndexName(collection); err != nil {
			return err
		}
		for _, field := range lo.Uniq(fieldNames(f)) {
			if err := sanitize.CheckReservedField(field); err != nil {
				return err
			}
		}
	}
	return nil
}

// regexPatterns walks f (recursing into $and/$or/$nor) and collects
// every $regex operator's pattern value.
func regexPatterns(f Filter) []string {
	var out []string
	for k, v := range f {
		switch k {
		case KeyAnd, KeyOr, KeyNor:
			if subs, ok := v.([]Filter); ok {
				for _, s := range subs {
					out = append(out, regexPatterns(s)...)
				}
			}
		default:
			if bag, ok := v.(OpBag); ok {
				if pattern, ok := bag[OpRegex].(string); ok {
					out = append(out, pattern)
				}
			}
		}
	}
	return out
}

// fieldNames walks f (recursing into $and/$or/$nor) and collects every
// non-operator field key.
func fieldNames(f Filter) []string {
	var out []string
	for k, v := range f {
		switch k {
		case KeyAnd, KeyOr, KeyNor:
			if subs, ok := v.([]Filter); ok {
				for _, s := range subs {
					out = append(out, fieldNames(s)...)
				}
			}
		default:
			if !strings.HasPrefix(k, "$") {
				out = append(out, k)
			}
		}
	}
	return out
}

func (r *Router) guardrailCheck(op Op, collection string, f Filter, confirm ConfirmToken, hasLimit bool) error {
	if !r.cfg.Guardrails {
		return nil
	}
	req := guardrail.Request{Operation: op, Collection: collection, Filter: f, Confirm: confirm, HasLimit: hasLimit}
	if err := guardrail.Check(req, r.rules); err != nil {
		r.bus.Emit(event.Event{Kind: event.KindGuardrailBlocked, Backend: r.adp.Backend(), Collection: collection, Operation: string(op), Err: err})
		return err
	}
	return nil
}

func (r *Router) record(rcpt Receipt) {
	r.bus.Record(rcpt)
}

// timed runs fn, recording its duration, and kicks off the reconnect
// controller in the background when fn's error is a connection-level
// failure and reconnect is enabled in Config.
func (r *Router) timed(fn func() (Receipt, error)) (Receipt, error) {
	start := time.Now()
	rcpt, err := fn()
	rcpt.Duration = time.Since(start)
	if err != nil {
		rcpt.Success = false
		r.maybeReconnect(err)
	}
	return rcpt, err
}

// maybeReconnect starts reconnect.Controller.Run in the background the
// first time an adapter call surfaces a connection-level failure, and
// is a no-op while a reconnect attempt is already in flight or
// Config.Reconnect.Enabled is false. The controller runs against
// context.Background() rather than the triggering call's context: the
// backoff sequence must outlive whatever request context happened to
// observe the disconnect.
func (r *Router) maybeReconnect(err error) {
	if !r.cfg.Reconnect.Enabled {
		return
	}
	e, ok := AsError(err)
	if !ok || (e.Code != CodeConnectionFailed && e.Code != CodeConnectionLost) {
		return
	}

	r.reconnectMu.Lock()
	if r.reconnecting {
		r.reconnectMu.Unlock()
		return
	}
	r.reconnecting = true
	r.reconnectMu.Unlock()

	go func() {
		defer func() {
			r.reconnectMu.Lock()
			r.reconnecting = false
			r.reconnectMu.Unlock()
		}()
		ctrl := &reconnect.Controller{
			Initial:     time.Duration(r.cfg.Reconnect.InitialDelayMs) * time.Millisecond,
			Max:         time.Duration(r.cfg.Reconnect.MaxDelayMs) * time.Millisecond,
			Multiplier:  r.cfg.Reconnect.BackoffMultiplier,
			MaxAttempts: r.cfg.Reconnect.MaxAttempts,
			Backend:     r.adp.Backend(),
			Bus:         r.bus,
		}
		_ = ctrl.Run(context.Background(), r.adp.Connect)
	}()
}

func cacheKey(collection string, op Op, f Filter, opts QueryOptions) CacheKey {
	var limit, skip int
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	if opts.Skip != nil {
		skip = *opts.Skip
	}
	return CacheKey{
		Table:      collection,
		Operation:  string(op),
		Predicates: fmt.Sprintf("%v", f),
		OrderBy:    fmt.Sprintf("%v", opts.Sort),
		Limit:      limit,
		Offset:     skip,
	}
}

// QueryOne runs a single-document read through the full pipeline,
// consulting the read-through cache first when one is attached.
func (r *Router) QueryOne(ctx context.Context, collection string, f Filter, opts QueryOptions) (map[string]any, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return nil, err
	}
	if r.cache == nil || !r.cfg.Cache.Enabled {
		doc, err := r.adp.QueryOne(ctx, collection, f, opts)
		r.record(NewReceipt(OpQueryOne, collection, r.adp.Backend()))
		return doc, err
	}

	key := cacheKey(collection, OpQueryOne, f, opts).String()
	if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
		var doc map[string]any
		if decErr := DecodeValue(cached, &doc); decErr == nil {
			return doc, nil
		}
	}
	doc, err := r.adp.QueryOne(ctx, collection, f, opts)
	r.record(NewReceipt(OpQueryOne, collection, r.adp.Backend()))
	if err == nil && doc != nil {
		if encoded, encErr := EncodeValue(doc); encErr == nil {
			_ = r.cache.Set(ctx, key, encoded, r.cfg.Cache.TTL)
		}
	}
	return doc, err
}

// QueryMany runs a multi-document read through the full pipeline,
// including the queryMany guardrail (requires an explicit limit).
func (r *Router) QueryMany(ctx context.Context, collection string, f Filter, opts QueryOptions) ([]map[string]any, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return nil, err
	}
	if err := r.guardrailCheck(OpQueryMany, collection, f, ConfirmNone, opts.HasLimit()); err != nil {
		return nil, err
	}
	docs, err := r.adp.QueryMany(ctx, collection, f, opts)
	r.record(NewReceipt(OpQueryMany, collection, r.adp.Backend()))
	return docs, err
}

// QueryWithLookup runs QueryOne's pipeline and attaches a
// cross-collection join.
func (r *Router) QueryWithLookup(ctx context.Context, collection string, f Filter, opts QueryOptions, lk lookup.Spec) (map[string]any, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return nil, err
	}
	doc, err := r.adp.QueryWithLookup(ctx, collection, f, opts, lk)
	r.record(NewReceipt(OpQueryOne, collection, r.adp.Backend()))
	return doc, err
}

// QueryManyWithLookup runs QueryMany's pipeline and attaches a
// cross-collection join to every result, using the adapter's batched
// join (one foreign fetch for every row) when it implements
// adapter.BatchLookupAdapter, falling back to one foreign fetch per
// row otherwise.
func (r *Router) QueryManyWithLookup(ctx context.Context, collection string, f Filter, opts QueryOptions, lk lookup.Spec) ([]map[string]any, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return nil, err
	}
	if err := r.guardrailCheck(OpQueryMany, collection, f, ConfirmNone, opts.HasLimit()); err != nil {
		return nil, err
	}

	var (
		docs []map[string]any
		err  error
	)
	if batch, ok := r.adp.(adapter.BatchLookupAdapter); ok {
		docs, err = batch.QueryManyWithLookup(ctx, collection, f, opts, lk)
	} else {
		docs, err = r.queryManyWithLookupRowByRow(ctx, collection, f, opts, lk)
	}
	r.record(NewReceipt(OpQueryMany, collection, r.adp.Backend()))
	return docs, err
}

// queryManyWithLookupRowByRow is the fallback used when the adapter
// doesn't implement adapter.BatchLookupAdapter: one foreign fetch per
// primary row via lookup.Attach.
func (r *Router) queryManyWithLookupRowByRow(ctx context.Context, collection string, f Filter, opts QueryOptions, lk lookup.Spec) ([]map[string]any, error) {
	rows, err := r.adp.QueryMany(ctx, collection, f, opts)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		attached, err := lookup.Attach(row, lk, func(localValue any) ([]map[string]any, error) {
			return r.adp.QueryMany(ctx, lk.As+"_target", Filter{lk.ForeignField: localValue}, QueryOptions{})
		})
		if err != nil {
			if err == lookup.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, attached)
	}
	return out, nil
}

// Count reports the number of documents matching f.
func (r *Router) Count(ctx context.Context, collection string, f Filter) (int64, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return 0, err
	}
	return r.adp.Count(ctx, collection, f)
}

// InsertOne inserts a single document, after sanitize-rule transforms,
// schema validation, and timestamp injection.
func (r *Router) InsertOne(ctx context.Context, collection string, doc map[string]any) (Receipt, error) {
	fresh, err := r.applyInsertPipeline(collection, doc)
	if err != nil {
		return Receipt{}, err
	}
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.InsertOne(ctx, collection, fresh) })
	r.record(rcpt)
	return rcpt, err
}

// InsertMany inserts many documents, after sanitize-rule transforms,
// schema validation, and timestamp injection on each. Every document is
// validated before any of them reach the adapter: a single invalid
// document fails the whole call with no partial insert.
func (r *Router) InsertMany(ctx context.Context, collection string, docs []map[string]any) (Receipt, error) {
	fresh := make([]map[string]any, len(docs))
	for i, d := range docs {
		f, err := r.applyInsertPipeline(collection, d)
		if err != nil {
			return Receipt{}, err
		}
		fresh[i] = f
	}
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.InsertMany(ctx, collection, fresh) })
	r.record(rcpt)
	return rcpt, err
}

func (r *Router) applyInsertPipeline(collection string, doc map[string]any) (map[string]any, error) {
	fresh := doc
	if r.cfg.Sanitize && len(r.sanitizeRules) > 0 {
		fresh = sanitize.ApplyTransforms(fresh, r.sanitizeRules)
	}
	if err := r.validateForInsert(collection, fresh); err != nil {
		return nil, err
	}
	return timestamp.InjectInsert(fresh, r.tsCfg, time.Now()), nil
}

// UpdateOne applies a single-document update.
func (r *Router) UpdateOne(ctx context.Context, collection string, f Filter, u Update, opts WriteOptions) (Receipt, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return Receipt{}, err
	}
	u = timestamp.InjectUpdate(u, r.tsCfg, time.Now())
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.UpdateOne(ctx, collection, f, u, opts) })
	r.record(rcpt)
	return rcpt, err
}

// UpdateMany applies a multi-document update, gated by the updateMany
// guardrail (empty filter requires UPDATE_ALL confirmation).
func (r *Router) UpdateMany(ctx context.Context, collection string, f Filter, u Update, opts WriteOptions) (Receipt, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return Receipt{}, err
	}
	if err := r.guardrailCheck(OpUpdateMany, collection, f, opts.Confirm, true); err != nil {
		return Receipt{}, err
	}
	u = timestamp.InjectUpdate(u, r.tsCfg, time.Now())
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.UpdateMany(ctx, collection, f, u, opts) })
	r.record(rcpt)
	return rcpt, err
}

// DeleteOne deletes a single document, gated by the deleteOne
// guardrail (filter must be non-empty).
func (r *Router) DeleteOne(ctx context.Context, collection string, f Filter, opts WriteOptions) (Receipt, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return Receipt{}, err
	}
	if err := r.guardrailCheck(OpDeleteOne, collection, f, opts.Confirm, true); err != nil {
		return Receipt{}, err
	}
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.DeleteOne(ctx, collection, f, opts) })
	r.record(rcpt)
	return rcpt, err
}

// DeleteMany deletes every document matching f, gated by the
// deleteMany guardrail (empty filter requires DELETE_ALL confirmation).
func (r *Router) DeleteMany(ctx context.Context, collection string, f Filter, opts WriteOptions) (Receipt, error) {
	if err := r.sanitizeFilter(collection, f); err != nil {
		return Receipt{}, err
	}
	if err := r.guardrailCheck(OpDeleteMany, collection, f, opts.Confirm, true); err != nil {
		return Receipt{}, err
	}
	rcpt, err := r.timed(func() (Receipt, error) { return r.adp.DeleteMany(ctx, collection, f, opts) })
	r.record(rcpt)
	return rcpt, err
}

// WithTransaction runs fn under a transaction scope when the backend
// supports one (relational and document-store); the search-engine
// backend has no transaction primitive and returns UNSUPPORTED_OPERATION.
func (r *Router) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txAdp, ok := r.adp.(adapter.TransactionalAdapter)
	if !ok {
		return NewError(CodeUnsupportedOperation,
			fmt.Sprintf("backend %q has no transaction support", r.adp.Backend()),
			"only the document-store and relational backends support withTransaction",
		).WithBackend(r.adp.Backend())
	}
	return txAdp.WithTransaction(ctx, fn)
}
