// Package document implements the adapter contract against a
// MongoDB-family document store. The filter and update ASTs are
// already the document algebra (same $eq/$and/$set/$push vocabulary),
// so translation here is a near-verbatim reinterpretation of
// map[string]any as bson.M rather than a compiling pass like the
// relational and search-engine adapters need.
package document

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/errormap"
	"github.com/polyquery/polyquery/lookup"
	"github.com/polyquery/polyquery/schema"
)

// Adapter implements adapter.Adapter against a single Mongo-family
// database reached through client.
type Adapter struct {
	uri         string
	dbName      string
	client      *mongo.Client
	db          *mongo.Database
	connectedAt time.Time
}

// New returns an unconnected Adapter for the given connection URI and
// database name.
func New(uri, dbName string) *Adapter {
	return &Adapter{uri: uri, dbName: dbName}
}

func (a *Adapter) Backend() string { return "mongo" }

func (a *Adapter) Raw() any {
	return a.client
}

func (a *Adapter) Connect(ctx context.Context) error {
	client, err := mongo.Connect(options.Client().ApplyURI(a.uri))
	if err != nil {
		return errormap.MapDocumentError(err, "").WithOperation("connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return errormap.MapDocumentError(err, "").WithOperation("connect")
	}
	a.client = client
	a.db = client.Database(a.dbName)
	a.connectedAt = time.Now()
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *Adapter) Status(ctx context.Context) polyquery.Status {
	redacted := ""
	if u, err := url.Parse(a.uri); err == nil {
		u.User = nil
		redacted = u.String()
	}
	st := polyquery.Status{Backend: "mongo", Driver: "mongo-driver/v2", Database: a.dbName, URI: redacted, State: polyquery.StateDisconnected}
	if a.client == nil {
		return st
	}
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		return st
	}
	st.State = polyquery.StateConnected
	st.Uptime = time.Since(a.connectedAt)
	return st
}

// toBSON reinterprets a Filter/OpBag tree as bson.M: Mongo's query
// operators ($eq, $ne, $gt, $in, $and, $or, $nor, ...) are a superset
// of the filter vocabulary, so every key and value round-trips as-is
// except nested sub-filters and OpBags, which need their own map type
// converted down the tree.
func toBSON(v any) any {
	switch t := v.(type) {
	case polyquery.Filter:
		return filterToBSON(t)
	case polyquery.OpBag:
		m := bson.M{}
		for k, val := range t {
			m[k] = toBSON(val)
		}
		return m
	case []polyquery.Filter:
		arr := make(bson.A, len(t))
		for i, f := range t {
			arr[i] = filterToBSON(f)
		}
		return arr
	default:
		return v
	}
}

func filterToBSON(f polyquery.Filter) bson.M {
	m := bson.M{}
	for k, v := range f {
		switch k {
		case polyquery.KeyAnd, polyquery.KeyOr, polyquery.KeyNor:
			if sub, ok := v.([]polyquery.Filter); ok {
				m[k] = toBSON(sub)
				continue
			}
		}
		m[k] = toBSON(v)
	}
	return m
}

func updateToBSON(u polyquery.Update) bson.M {
	m := bson.M{}
	if len(u.Set) > 0 {
		m["$set"] = bson.M(u.Set)
	}
	if len(u.Unset) > 0 {
		unset := bson.M{}
		for f := range u.Unset {
			unset[f] = ""
		}
		m["$unset"] = unset
	}
	if len(u.Inc) > 0 {
		m["$inc"] = bson.M(u.Inc)
	}
	if len(u.Push) > 0 {
		m["$push"] = bson.M(u.Push)
	}
	if len(u.Pull) > 0 {
		m["$pull"] = bson.M(u.Pull)
	}
	return m
}

func findOptions(opts polyquery.QueryOptions) *options.FindOptionsBuilder {
	fo := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range opts.Sort {
			sort = append(sort, bson.E{Key: s.Field, Value: int(s.Direction)})
		}
		fo.SetSort(sort)
	}
	if len(opts.Projection.Include) > 0 || len(opts.Projection.Exclude) > 0 {
		proj := bson.M{}
		for _, f := range opts.Projection.Include {
			proj[f] = 1
		}
		for _, f := range opts.Projection.Exclude {
			proj[f] = 0
		}
		fo.SetProjection(proj)
	}
	if opts.Skip != nil {
		fo.SetSkip(int64(*opts.Skip))
	}
	if opts.HasLimit() {
		fo.SetLimit(int64(*opts.Limit))
	}
	return fo
}

func findOneOptions(opts polyquery.QueryOptions) *options.FindOneOptionsBuilder {
	fo := options.FindOne()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range opts.Sort {
			sort = append(sort, bson.E{Key: s.Field, Value: int(s.Direction)})
		}
		fo.SetSort(sort)
	}
	if len(opts.Projection.Include) > 0 || len(opts.Projection.Exclude) > 0 {
		proj := bson.M{}
		for _, f := range opts.Projection.Include {
			proj[f] = 1
		}
		for _, f := range opts.Projection.Exclude {
			proj[f] = 0
		}
		fo.SetProjection(proj)
	}
	return fo
}

func (a *Adapter) QueryOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) (map[string]any, error) {
	var doc bson.M
	err := a.db.Collection(collection).FindOne(ctx, filterToBSON(f), findOneOptions(opts)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errormap.MapDocumentError(err, collection).WithOperation("queryOne")
	}
	return map[string]any(doc), nil
}

func (a *Adapter) QueryMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) ([]map[string]any, error) {
	cur, err := a.db.Collection(collection).Find(ctx, filterToBSON(f), findOptions(opts))
	if err != nil {
		return nil, errormap.MapDocumentError(err, collection).WithOperation("queryMany")
	}
	defer cur.Close(ctx)
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, errormap.MapDocumentError(err, collection).WithOperation("queryMany")
	}
	out := make([]map[string]any, len(raw))
	for i, m := range raw {
		out[i] = map[string]any(m)
	}
	return out, nil
}

// QueryWithLookup runs the two-query join: the primary document via
// QueryOne, then (if the local field is present) a second QueryMany
// against the foreign collection filtered on equality, attached under
// lk.As.
func (a *Adapter) QueryWithLookup(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions, lk lookup.Spec) (map[string]any, error) {
	row, err := a.QueryOne(ctx, collection, f, opts)
	if err != nil || row == nil {
		return row, err
	}
	attached, err := lookup.Attach(row, lk, func(localValue any) ([]map[string]any, error) {
		return a.QueryMany(ctx, lk.As+"_target", polyquery.Filter{lk.ForeignField: localValue}, polyquery.QueryOptions{})
	})
	if err != nil {
		if err == lookup.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return attached, nil
}

// QueryManyWithLookup runs the batched join: one QueryMany for the
// primary documents, then a single foreign QueryMany for every
// distinct local value across all of them (via $in), grouped and
// attached per document by lookup.BatchAttach.
func (a *Adapter) QueryManyWithLookup(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions, lk lookup.Spec) ([]map[string]any, error) {
	rows, err := a.QueryMany(ctx, collection, f, opts)
	if err != nil {
		return nil, err
	}
	return lookup.BatchAttach(rows, lk, func(localValues []any) ([]map[string]any, error) {
		return a.QueryMany(ctx, lk.As+"_target", polyquery.Filter{lk.ForeignField: polyquery.OpBag{polyquery.OpIn: localValues}}, polyquery.QueryOptions{})
	})
}

func (a *Adapter) Count(ctx context.Context, collection string, f polyquery.Filter) (int64, error) {
	n, err := a.db.Collection(collection).CountDocuments(ctx, filterToBSON(f))
	if err != nil {
		return 0, errormap.MapDocumentError(err, collection).WithOperation("count")
	}
	return n, nil
}

func (a *Adapter) InsertOne(ctx context.Context, collection string, doc map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertOne, collection, "mongo")
	if _, err := a.db.Collection(collection).InsertOne(ctx, bson.M(doc)); err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("insertOne")
	}
	r.Inserted = 1
	return r, nil
}

func (a *Adapter) InsertMany(ctx context.Context, collection string, docs []map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertMany, collection, "mongo")
	batch := make([]any, len(docs))
	for i, d := range docs {
		batch[i] = bson.M(d)
	}
	res, err := a.db.Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("insertMany")
	}
	r.Inserted = int64(len(res.InsertedIDs))
	return r, nil
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateOne, collection, "mongo")
	uo := options.UpdateOne().SetUpsert(opts.Upsert)
	res, err := a.db.Collection(collection).UpdateOne(ctx, filterToBSON(f), updateToBSON(u), uo)
	if err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("updateOne")
	}
	r.Matched, r.Modified = res.MatchedCount, res.ModifiedCount
	if res.UpsertedID != nil {
		r.Inserted = 1
	}
	return r, nil
}

func (a *Adapter) UpdateMany(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateMany, collection, "mongo")
	res, err := a.db.Collection(collection).UpdateMany(ctx, filterToBSON(f), updateToBSON(u))
	if err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("updateMany")
	}
	r.Matched, r.Modified = res.MatchedCount, res.ModifiedCount
	return r, nil
}

func (a *Adapter) DeleteOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteOne, collection, "mongo")
	res, err := a.db.Collection(collection).DeleteOne(ctx, filterToBSON(f))
	if err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("deleteOne")
	}
	r.Deleted = res.DeletedCount
	return r, nil
}

func (a *Adapter) DeleteMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteMany, collection, "mongo")
	res, err := a.db.Collection(collection).DeleteMany(ctx, filterToBSON(f))
	if err != nil {
		return r, errormap.MapDocumentError(err, collection).WithOperation("deleteMany")
	}
	r.Deleted = res.DeletedCount
	return r, nil
}

// WithTransaction implements adapter.TransactionalAdapter using a
// Mongo multi-document session; requires a replica set or sharded
// deployment, which is the native store's own limitation, not
// something this adapter adds.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := a.client.StartSession()
	if err != nil {
		return errormap.MapDocumentError(err, "").WithOperation("withTransaction")
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc)
	})
	if err != nil {
		return errormap.MapDocumentError(err, "").WithOperation("withTransaction")
	}
	return nil
}

// EnsureCollections creates any collection in collections that
// doesn't already exist.
func (a *Adapter) EnsureCollections(ctx context.Context, collections []*schema.Collection) error {
	existing := map[string]bool{}
	names, err := a.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errormap.MapDocumentError(err, "").WithOperation("ensureCollections")
	}
	for _, n := range names {
		existing[n] = true
	}
	for _, c := range collections {
		if existing[c.Name] {
			continue
		}
		if err := a.db.CreateCollection(ctx, c.Name); err != nil {
			return errormap.MapDocumentError(err, c.Name).WithOperation("ensureCollections")
		}
	}
	return nil
}

// EnsureIndexes creates the indexes declared on each collection
// (single-field Indexed() fields plus compound Indexes entries).
func (a *Adapter) EnsureIndexes(ctx context.Context, collections []*schema.Collection) error {
	for _, c := range collections {
		var models []mongo.IndexModel
		for _, f := range c.Fields {
			if f.IsIndexed() {
				models = append(models, mongo.IndexModel{Keys: bson.D{{Key: f.Name(), Value: 1}}})
			}
		}
		for _, idx := range c.Indexes {
			keys := bson.D{}
			for _, name := range idx {
				keys = append(keys, bson.E{Key: name, Value: 1})
			}
			models = append(models, mongo.IndexModel{Keys: keys})
		}
		if len(models) == 0 {
			continue
		}
		if _, err := a.db.Collection(c.Name).Indexes().CreateMany(ctx, models); err != nil {
			return errormap.MapDocumentError(err, c.Name).WithOperation("ensureIndexes")
		}
	}
	return nil
}

func (a *Adapter) DescribeCollection(ctx context.Context, collection string) (adapter.CollectionInfo, error) {
	count, err := a.GetDocumentCount(ctx, collection)
	if err != nil {
		return adapter.CollectionInfo{}, err
	}
	idxCur, err := a.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return adapter.CollectionInfo{}, errormap.MapDocumentError(err, collection).WithOperation("describeCollection")
	}
	defer idxCur.Close(ctx)
	var indexes [][]string
	var raw []bson.M
	if err := idxCur.All(ctx, &raw); err != nil {
		return adapter.CollectionInfo{}, errormap.MapDocumentError(err, collection).WithOperation("describeCollection")
	}
	for _, idx := range raw {
		keys, ok := idx["key"].(bson.M)
		if !ok {
			continue
		}
		var fields []string
		for k := range keys {
			if k != "_id" {
				fields = append(fields, k)
			}
		}
		if len(fields) > 0 {
			indexes = append(indexes, fields)
		}
	}
	return adapter.CollectionInfo{Name: collection, Indexes: indexes, Count: count}, nil
}

func (a *Adapter) GetDocumentCount(ctx context.Context, collection string) (int64, error) {
	n, err := a.db.Collection(collection).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, errormap.MapDocumentError(err, collection).WithOperation("getDocumentCount")
	}
	return n, nil
}

// Explain renders the find command QueryMany would issue: the
// collection name, the compiled filter document, and the sort/skip/
// limit this call would apply. The projection is not included.
func (a *Adapter) Explain(collection string, f polyquery.Filter, opts polyquery.QueryOptions) (string, error) {
	cmd := bson.M{
		"find":   collection,
		"filter": filterToBSON(f),
	}
	if len(opts.Sort) > 0 {
		sort := bson.M{}
		for _, s := range opts.Sort {
			sort[s.Field] = int(s.Direction)
		}
		cmd["sort"] = sort
	}
	if opts.Skip != nil {
		cmd["skip"] = *opts.Skip
	}
	if opts.HasLimit() {
		cmd["limit"] = *opts.Limit
	}
	buf, err := bson.MarshalExtJSONIndent(cmd, false, false, "", "  ")
	if err != nil {
		return "", errormap.MapDocumentError(err, collection).WithOperation("explain")
	}
	return string(buf), nil
}
