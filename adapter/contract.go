// Package adapter declares the uniform per-backend interface
// implemented by the document-store, relational, and search-engine
// backends, plus the small set of optional capability interfaces the
// router probes for via type assertion.
package adapter

import (
	"context"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/lookup"
	"github.com/polyquery/polyquery/schema"
)

// Adapter is implemented natively by every backend. Every method maps
// one-to-one onto a façade operation; optional capabilities (
// transactions, schema/index provisioning, introspection) are probed
// for separately since the search-engine backend, in particular,
// doesn't support all of them.
type Adapter interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Status(ctx context.Context) polyquery.Status

	QueryOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) (map[string]any, error)
	QueryMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) ([]map[string]any, error)
	QueryWithLookup(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions, lk lookup.Spec) (map[string]any, error)
	Count(ctx context.Context, collection string, f polyquery.Filter) (int64, error)

	InsertOne(ctx context.Context, collection string, doc map[string]any) (polyquery.Receipt, error)
	InsertMany(ctx context.Context, collection string, docs []map[string]any) (polyquery.Receipt, error)
	UpdateOne(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error)
	UpdateMany(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error)
	DeleteOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error)
	DeleteMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error)

	// Backend names the adapter for event/receipt tagging ("mongo",
	// "postgres", "mysql", "mssql", "sqlite", "elastic").
	Backend() string

	// Raw exposes the underlying driver handle (*mongo.Client, *sql.DB,
	// *elasticsearch.Client) for callers that need an escape hatch.
	Raw() any
}

// TransactionalAdapter is implemented by adapters with a transactional
// scope (relational and document-store; absent for search-engine).
type TransactionalAdapter interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BatchLookupAdapter is implemented by adapters that can run
// queryMany combined with a lookup as one batched foreign fetch
// (lookup.BatchAttach) instead of one foreign query per primary row.
type BatchLookupAdapter interface {
	QueryManyWithLookup(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions, lk lookup.Spec) ([]map[string]any, error)
}

// SchemaEnsurer is implemented by adapters that can provision missing
// collections/tables and indexes from the schema registry.
type SchemaEnsurer interface {
	EnsureCollections(ctx context.Context, collections []*schema.Collection) error
	EnsureIndexes(ctx context.Context, collections []*schema.Collection) error
}

// CollectionInfo is the introspected shape of one live collection,
// used by describe.
type CollectionInfo struct {
	Name    string
	Fields  []*schema.Field
	Indexes [][]string
	Count   int64
}

// Describer is implemented by adapters that can introspect a live
// collection beyond what the schema registry declares.
type Describer interface {
	DescribeCollection(ctx context.Context, collection string) (CollectionInfo, error)
	GetDocumentCount(ctx context.Context, collection string) (int64, error)
}

// Explainer is implemented by adapters that can render the native
// query text/object that would execute for a given filter/options,
// without running it (the explain operation).
type Explainer interface {
	Explain(collection string, f polyquery.Filter, opts polyquery.QueryOptions) (string, error)
}
