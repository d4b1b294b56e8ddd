package polyquery

import (
	"context"

	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/event"
	"github.com/polyquery/polyquery/guardrail"
	"github.com/polyquery/polyquery/lookup"
	"github.com/polyquery/polyquery/schema"
)

// fakeAdapter is a minimal adapter.Adapter stub used to exercise
// router/describe/explain/batch logic without a live backend
// connection. Individual tests embed it and override the one or two
// methods they care about.
type fakeAdapter struct {
	backend string

	describeInfo  adapter.CollectionInfo
	describeErr   error
	documentCount int64
	countErr      error
	countCalls    int
	describeCalls int
}

func (f *fakeAdapter) Connect(ctx context.Context) error { return nil }
func (f *fakeAdapter) Close(ctx context.Context) error   { return nil }
func (f *fakeAdapter) Status(ctx context.Context) Status { return Status{} }

func (f *fakeAdapter) QueryOne(ctx context.Context, collection string, filter Filter, opts QueryOptions) (map[string]any, error) {
	return nil, nil
}
func (f *fakeAdapter) QueryMany(ctx context.Context, collection string, filter Filter, opts QueryOptions) ([]map[string]any, error) {
	return nil, nil
}
func (f *fakeAdapter) QueryWithLookup(ctx context.Context, collection string, filter Filter, opts QueryOptions, lk lookup.Spec) (map[string]any, error) {
	return nil, nil
}
func (f *fakeAdapter) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	return 0, nil
}
func (f *fakeAdapter) InsertOne(ctx context.Context, collection string, doc map[string]any) (Receipt, error) {
	r := NewReceipt(OpInsertOne, collection, f.Backend())
	r.Inserted = 1
	return r, nil
}
func (f *fakeAdapter) InsertMany(ctx context.Context, collection string, docs []map[string]any) (Receipt, error) {
	r := NewReceipt(OpInsertMany, collection, f.Backend())
	r.Inserted = int64(len(docs))
	return r, nil
}
func (f *fakeAdapter) UpdateOne(ctx context.Context, collection string, filter Filter, u Update, opts WriteOptions) (Receipt, error) {
	return NewReceipt(OpUpdateOne, collection, f.Backend()), nil
}
func (f *fakeAdapter) UpdateMany(ctx context.Context, collection string, filter Filter, u Update, opts WriteOptions) (Receipt, error) {
	return NewReceipt(OpUpdateMany, collection, f.Backend()), nil
}
func (f *fakeAdapter) DeleteOne(ctx context.Context, collection string, filter Filter, opts WriteOptions) (Receipt, error) {
	return NewReceipt(OpDeleteOne, collection, f.Backend()), nil
}
func (f *fakeAdapter) DeleteMany(ctx context.Context, collection string, filter Filter, opts WriteOptions) (Receipt, error) {
	return NewReceipt(OpDeleteMany, collection, f.Backend()), nil
}
func (f *fakeAdapter) Backend() string {
	if f.backend == "" {
		return "fake"
	}
	return f.backend
}
func (f *fakeAdapter) Raw() any { return nil }

func (f *fakeAdapter) DescribeCollection(ctx context.Context, collection string) (adapter.CollectionInfo, error) {
	f.describeCalls++
	return f.describeInfo, f.describeErr
}
func (f *fakeAdapter) GetDocumentCount(ctx context.Context, collection string) (int64, error) {
	f.countCalls++
	return f.documentCount, f.countErr
}

var (
	_ adapter.Adapter   = (*fakeAdapter)(nil)
	_ adapter.Describer = (*fakeAdapter)(nil)
)

func newTestRouter(adp adapter.Adapter, registry *schema.Registry) *Router {
	cfg := DefaultConfig()
	return &Router{
		adp:      adp,
		registry: registry,
		cfg:      cfg,
		bus:      event.New(nil, 0),
		tsCfg:    timestampConfigFrom(cfg),
		rules:    guardrail.DefaultRules(),
	}
}
