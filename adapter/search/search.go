// Package search implements the adapter contract against an
// Elasticsearch-family search engine, compiling filters and updates
// through dialect/search and reusing the lookup package's two-query
// join the way the relational and document adapters do (the search
// engine has no native equivalent to a SQL join or a mongo $lookup
// stage cheap enough to prefer over it).
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/adapter"
	dsearch "github.com/polyquery/polyquery/dialect/search"
	"github.com/polyquery/polyquery/errormap"
	"github.com/polyquery/polyquery/lookup"
	"github.com/polyquery/polyquery/schema"
)

// Adapter implements adapter.Adapter against one Elasticsearch-family
// cluster. It does not implement adapter.TransactionalAdapter: the
// search engine has no cross-document transaction primitive.
type Adapter struct {
	addresses   []string
	client      *elasticsearch.Client
	connectedAt time.Time
}

// New returns an unconnected Adapter for the given cluster addresses.
func New(addresses []string) *Adapter {
	return &Adapter{addresses: addresses}
}

func (a *Adapter) Backend() string { return "elastic" }

func (a *Adapter) Raw() any { return a.client }

func (a *Adapter) Connect(ctx context.Context) error {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: a.addresses})
	if err != nil {
		return errormap.MapSearchError(err, 0, "").WithOperation("connect")
	}
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return errormap.MapSearchError(err, 0, "").WithOperation("connect")
	}
	defer res.Body.Close()
	if res.IsError() {
		return errormap.MapSearchError(fmt.Errorf("%s", res.String()), res.StatusCode, "").WithOperation("connect")
	}
	a.client = client
	a.connectedAt = time.Now()
	return nil
}

func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

func (a *Adapter) Status(ctx context.Context) polyquery.Status {
	st := polyquery.Status{Backend: "elastic", Driver: "go-elasticsearch/v8", State: polyquery.StateDisconnected}
	if a.client == nil {
		return st
	}
	res, err := a.client.Ping(a.client.Ping.WithContext(ctx))
	if err != nil {
		return st
	}
	defer res.Body.Close()
	if res.IsError() {
		return st
	}
	st.State = polyquery.StateConnected
	st.Uptime = time.Since(a.connectedAt)
	return st
}

func decodeResponse(res *esapi.Response, v any) error {
	defer res.Body.Close()
	if res.IsError() {
		var body map[string]any
		_ = json.NewDecoder(res.Body).Decode(&body)
		return fmt.Errorf("%v", body)
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}

func encodeBody(v any) (io.Reader, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

type searchHit struct {
	Source map[string]any `json:"_source"`
	ID     string         `json:"_id"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

func sortClause(s polyquery.Sort) []map[string]string {
	if len(s) == 0 {
		return nil
	}
	out := make([]map[string]string, len(s))
	for i, f := range s {
		dir := "asc"
		if f.Direction == polyquery.Descending {
			dir = "desc"
		}
		out[i] = map[string]string{f.Field: dir}
	}
	return out
}

func (a *Adapter) search(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions, size int) (searchResponse, error) {
	query, err := dsearch.TranslateFilter(f)
	if err != nil {
		return searchResponse{}, err
	}
	body := map[string]any{"query": query}
	if sort := sortClause(opts.Sort); sort != nil {
		body["sort"] = sort
	}
	if opts.Skip != nil {
		body["from"] = *opts.Skip
	}
	body["size"] = size
	if !opts.Projection.IsExclusionOnly() && len(opts.Projection.Include) > 0 {
		body["_source"] = opts.Projection.Include
	}
	reader, err := encodeBody(body)
	if err != nil {
		return searchResponse{}, err
	}
	res, err := a.client.Search(
		a.client.Search.WithContext(ctx),
		a.client.Search.WithIndex(collection),
		a.client.Search.WithBody(reader),
	)
	if err != nil {
		return searchResponse{}, errormap.MapSearchError(err, 0, collection)
	}
	var out searchResponse
	if err := decodeResponse(res, &out); err != nil {
		status := 0
		if res != nil {
			status = res.StatusCode
		}
		return searchResponse{}, errormap.MapSearchError(err, status, collection)
	}
	return out, nil
}

func withProjectionExclusion(doc map[string]any, opts polyquery.QueryOptions) map[string]any {
	if len(opts.Projection.Exclude) == 0 {
		return doc
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, f := range opts.Projection.Exclude {
		delete(out, f)
	}
	return out
}

func (a *Adapter) QueryOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) (map[string]any, error) {
	res, err := a.search(ctx, collection, f, opts, 1)
	if err != nil {
		return nil, err
	}
	if len(res.Hits.Hits) == 0 {
		return nil, nil
	}
	doc := res.Hits.Hits[0].Source
	doc["_id"] = res.Hits.Hits[0].ID
	return withProjectionExclusion(doc, opts), nil
}

func (a *Adapter) QueryMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) ([]map[string]any, error) {
	size := 10000
	if opts.HasLimit() {
		size = *opts.Limit
	}
	res, err := a.search(ctx, collection, f, opts, size)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(res.Hits.Hits))
	for i, h := range res.Hits.Hits {
		doc := h.Source
		doc["_id"] = h.ID
		out[i] = withProjectionExclusion(doc, opts)
	}
	return out, nil
}

// QueryWithLookup runs the two-query join: the primary document via
// QueryOne, then (if the local field is present) a second QueryMany
// against the foreign index filtered on equality, attached under
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
	query, err := dsearch.TranslateFilter(f)
	if err != nil {
		return 0, err
	}
	reader, err := encodeBody(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := a.client.Count(
		a.client.Count.WithContext(ctx),
		a.client.Count.WithIndex(collection),
		a.client.Count.WithBody(reader),
	)
	if err != nil {
		return 0, errormap.MapSearchError(err, 0, collection).WithOperation("count")
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return 0, errormap.MapSearchError(err, res.StatusCode, collection).WithOperation("count")
	}
	return out.Count, nil
}

func (a *Adapter) InsertOne(ctx context.Context, collection string, doc map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertOne, collection, "elastic")
	reader, err := encodeBody(doc)
	if err != nil {
		return r, err
	}
	res, err := a.client.Index(
		collection, reader,
		a.client.Index.WithContext(ctx),
		a.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("insertOne")
	}
	if err := decodeResponse(res, nil); err != nil {
		return r, errormap.MapSearchError(err, res.StatusCode, collection).WithOperation("insertOne")
	}
	r.Inserted = 1
	return r, nil
}

func (a *Adapter) InsertMany(ctx context.Context, collection string, docs []map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertMany, collection, "elastic")
	var buf bytes.Buffer
	for _, doc := range docs {
		meta, err := json.Marshal(map[string]any{"index": map[string]any{"_index": collection}})
		if err != nil {
			return r, err
		}
		src, err := json.Marshal(doc)
		if err != nil {
			return r, err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(src)
		buf.WriteByte('\n')
	}
	res, err := a.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		a.client.Bulk.WithContext(ctx),
		a.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("insertMany")
	}
	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return r, errormap.MapSearchError(err, res.StatusCode, collection).WithOperation("insertMany")
	}
	for _, item := range out.Items {
		for _, action := range item {
			if action.Status < 300 {
				r.Inserted++
			}
		}
	}
	return r, nil
}

// mutateByQuery runs a Painless update_by_query script compiled by
// dialect/search.TranslateUpdate against every document matching f,
// returning the updated-document count elasticsearch reports.
func (a *Adapter) mutateByQuery(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update) (int64, error) {
	query, err := dsearch.TranslateFilter(f)
	if err != nil {
		return 0, err
	}
	script, err := dsearch.TranslateUpdate(u)
	if err != nil {
		return 0, err
	}
	body := map[string]any{
		"query": query,
		"script": map[string]any{
			"source": script.Source,
			"params": script.Params,
		},
	}
	reader, err := encodeBody(body)
	if err != nil {
		return 0, err
	}
	res, err := a.client.UpdateByQuery(
		[]string{collection},
		a.client.UpdateByQuery.WithContext(ctx),
		a.client.UpdateByQuery.WithBody(reader),
		a.client.UpdateByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, errormap.MapSearchError(err, 0, collection)
	}
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return 0, errormap.MapSearchError(err, res.StatusCode, collection)
	}
	return out.Updated, nil
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateOne, collection, "elastic")
	row, err := a.QueryOne(ctx, collection, f, polyquery.QueryOptions{})
	if err != nil {
		return r, err
	}
	if row == nil {
		if opts.Upsert {
			insertDoc := upsertInsertDoc(f, u)
			if _, err := a.InsertOne(ctx, collection, insertDoc); err != nil {
				return r, err
			}
			r.Inserted = 1
		}
		return r, nil
	}
	id, _ := row["_id"].(string)
	pointFilter := polyquery.Filter{"_id": id}
	updated, err := a.mutateByQuery(ctx, collection, pointFilter, u)
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("updateOne")
	}
	r.Matched, r.Modified = updated, updated
	return r, nil
}

func (a *Adapter) UpdateMany(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateMany, collection, "elastic")
	updated, err := a.mutateByQuery(ctx, collection, f, u)
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("updateMany")
	}
	r.Matched, r.Modified = updated, updated
	return r, nil
}

// upsertInsertDoc builds the document to insert for UpdateOne's
// upsert path: the equality constraints from f merged with the
// update's $set fields, mirroring the relational adapter's
// dsql.UpsertInsertDoc.
func upsertInsertDoc(f polyquery.Filter, u polyquery.Update) map[string]any {
	doc := make(map[string]any)
	for k, v := range f {
		if len(k) == 0 || k[0] == '$' {
			continue
		}
		if _, isBag := v.(polyquery.OpBag); isBag {
			continue
		}
		doc[k] = v
	}
	for k, v := range u.Set {
		doc[k] = v
	}
	return doc
}

func (a *Adapter) deleteByQuery(ctx context.Context, collection string, f polyquery.Filter) (int64, error) {
	query, err := dsearch.TranslateFilter(f)
	if err != nil {
		return 0, err
	}
	reader, err := encodeBody(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := a.client.DeleteByQuery(
		[]string{collection}, reader,
		a.client.DeleteByQuery.WithContext(ctx),
		a.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, errormap.MapSearchError(err, 0, collection)
	}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return 0, errormap.MapSearchError(err, res.StatusCode, collection)
	}
	return out.Deleted, nil
}

func (a *Adapter) DeleteOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteOne, collection, "elastic")
	row, err := a.QueryOne(ctx, collection, f, polyquery.QueryOptions{})
	if err != nil || row == nil {
		return r, err
	}
	id, _ := row["_id"].(string)
	deleted, err := a.deleteByQuery(ctx, collection, polyquery.Filter{"_id": id})
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("deleteOne")
	}
	r.Deleted = deleted
	return r, nil
}

func (a *Adapter) DeleteMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteMany, collection, "elastic")
	deleted, err := a.deleteByQuery(ctx, collection, f)
	if err != nil {
		return r, errormap.MapSearchError(err, 0, collection).WithOperation("deleteMany")
	}
	r.Deleted = deleted
	return r, nil
}

// EnsureCollections creates any index in collections that doesn't
// already exist.
func (a *Adapter) EnsureCollections(ctx context.Context, collections []*schema.Collection) error {
	for _, c := range collections {
		res, err := a.client.Indices.Exists([]string{c.Name}, a.client.Indices.Exists.WithContext(ctx))
		if err != nil {
			return errormap.MapSearchError(err, 0, c.Name).WithOperation("ensureCollections")
		}
		exists := res.StatusCode == 200
		res.Body.Close()
		if exists {
			continue
		}
		createRes, err := a.client.Indices.Create(c.Name, a.client.Indices.Create.WithContext(ctx))
		if err != nil {
			return errormap.MapSearchError(err, 0, c.Name).WithOperation("ensureCollections")
		}
		if err := decodeResponse(createRes, nil); err != nil {
			return errormap.MapSearchError(err, createRes.StatusCode, c.Name).WithOperation("ensureCollections")
		}
	}
	return nil
}

// EnsureIndexes installs a mapping declaring the indexed/keyword
// fields on each collection. Elasticsearch indexes every field by
// default; this narrows text fields that need exact-match filtering
// to "keyword" so term/range queries behave as the filter algebra
// expects rather than falling back to analyzed full-text matching.
func (a *Adapter) EnsureIndexes(ctx context.Context, collections []*schema.Collection) error {
	for _, c := range collections {
		properties := map[string]any{}
		for _, f := range c.Fields {
			if !f.IsIndexed() {
				continue
			}
			switch f.Type() {
			case schema.TypeString, schema.TypeEnum:
				properties[f.Name()] = map[string]any{"type": "keyword"}
			case schema.TypeNumber:
				properties[f.Name()] = map[string]any{"type": "double"}
			case schema.TypeBool:
				properties[f.Name()] = map[string]any{"type": "boolean"}
			case schema.TypeTime:
				properties[f.Name()] = map[string]any{"type": "date"}
			}
		}
		if len(properties) == 0 {
			continue
		}
		reader, err := encodeBody(map[string]any{"properties": properties})
		if err != nil {
			return err
		}
		res, err := a.client.Indices.PutMapping(
			[]string{c.Name}, reader,
			a.client.Indices.PutMapping.WithContext(ctx),
		)
		if err != nil {
			return errormap.MapSearchError(err, 0, c.Name).WithOperation("ensureIndexes")
		}
		if err := decodeResponse(res, nil); err != nil {
			return errormap.MapSearchError(err, res.StatusCode, c.Name).WithOperation("ensureIndexes")
		}
	}
	return nil
}

func (a *Adapter) DescribeCollection(ctx context.Context, collection string) (adapter.CollectionInfo, error) {
	count, err := a.GetDocumentCount(ctx, collection)
	if err != nil {
		return adapter.CollectionInfo{}, err
	}
	res, err := a.client.Indices.GetMapping(
		a.client.Indices.GetMapping.WithContext(ctx),
		a.client.Indices.GetMapping.WithIndex(collection),
	)
	if err != nil {
		return adapter.CollectionInfo{}, errormap.MapSearchError(err, 0, collection).WithOperation("describeCollection")
	}
	var out map[string]struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return adapter.CollectionInfo{}, errormap.MapSearchError(err, res.StatusCode, collection).WithOperation("describeCollection")
	}
	var fields []*schema.Field
	for idx := range out {
		for name := range out[idx].Mappings.Properties {
			fields = append(fields, schema.String(name))
		}
	}
	return adapter.CollectionInfo{Name: collection, Fields: fields, Count: count}, nil
}

func (a *Adapter) GetDocumentCount(ctx context.Context, collection string) (int64, error) {
	return a.Count(ctx, collection, polyquery.Filter{})
}

// Explain renders the query and sort parts of the DSL body QueryMany
// would send, without running it. The from, size and _source parts of
// that body are not included.
func (a *Adapter) Explain(collection string, f polyquery.Filter, opts polyquery.QueryOptions) (string, error) {
	query, err := dsearch.TranslateFilter(f)
	if err != nil {
		return "", err
	}
	body := map[string]any{"query": query}
	if sort := sortClause(opts.Sort); sort != nil {
		body["sort"] = sort
	}
	buf, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
