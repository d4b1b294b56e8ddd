// Package relational implements the adapter contract over the
// four SQL dialects by pairing dialect/sql's translator and builder
// with database/sql, emulating single-row targeting, upsert, and
// cross-collection lookup the way the document and search-engine
// adapters do.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/dialect"
	dsql "github.com/polyquery/polyquery/dialect/sql"
	"github.com/polyquery/polyquery/dialect/sql/schema"
	"github.com/polyquery/polyquery/errormap"
	"github.com/polyquery/polyquery/lookup"
	polyschema "github.com/polyquery/polyquery/schema"
)

// connExecQuerier is the common Exec/Query surface both *dsql.Driver
// and *dsql.Tx expose by embedding dsql.Conn, letting QueryOne/Insert/
// Update/etc. run unmodified whether or not they're inside a
// transaction.
type connExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Adapter implements adapter.Adapter for one SQL dialect.
type Adapter struct {
	dialectName       string
	dsn               string
	driver            *dsql.Driver // nil for a transaction-scoped Adapter; see conn
	conn              connExecQuerier
	stats             *dsql.StatsDriver // nil when verbose (DebugDriver is the conn instead)
	connectedAt       time.Time
	guardrailsEnabled bool
	verbose           bool
	registry          *polyschema.Registry
}

// SetRegistry attaches the schema registry DescribeCollection consults
// for field metadata. Without one, describe falls back to reporting
// bare column names discovered by introspecting the live table.
func (a *Adapter) SetRegistry(r *polyschema.Registry) { a.registry = r }

// New returns an unconnected Adapter for the given dialect and data
// source name. guardrailsEnabled governs the AllowUnbounded decision
// for single-row update emulation: with guardrails off, an
// empty filter is allowed to target an arbitrary row. verbose selects
// which dsql driver wrapper Connect installs: DebugDriver (full
// statement+argument logging) when true, StatsDriver (silent query
// counters) when false.
func New(dialectName, dsn string, guardrailsEnabled, verbose bool) (*Adapter, error) {
	if !dialect.Valid(dialectName) {
		return nil, fmt.Errorf("relational: unrecognized dialect %q", dialectName)
	}
	return &Adapter{dialectName: dialectName, dsn: dsn, guardrailsEnabled: guardrailsEnabled, verbose: verbose}, nil
}

func (a *Adapter) Backend() string { return a.dialectName }

func (a *Adapter) Raw() any {
	if a.driver == nil {
		return nil
	}
	return a.driver.DB()
}

// Connect opens the underlying *sql.DB and verifies connectivity.
func (a *Adapter) Connect(ctx context.Context) error {
	driverName, err := driverNameFor(a.dialectName)
	if err != nil {
		return polyquery.NewError(polyquery.CodeConnectionFailed, err.Error(),
			"use one of: postgresql://, mysql://, mssql://, sqlite:").WithBackend(a.dialectName)
	}
	drv, err := dsql.Open(driverName, a.dsn)
	if err != nil {
		return errormap.MapSQLError(err, a.dialectName, "").WithOperation("connect")
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		return errormap.MapSQLError(err, a.dialectName, "").WithOperation("connect")
	}
	a.driver = drv
	if a.verbose {
		a.conn = dsql.NewDebugDriver(drv)
	} else {
		sd := dsql.NewStatsDriver(drv, dsql.WithSlowQueryLog())
		a.stats = sd
		a.conn = sd
	}
	a.connectedAt = time.Now()
	return nil
}

// QueryStats reports the query counters collected since Connect, or a
// zero StatsSnapshot when the adapter is running verbose (DebugDriver
// logs every statement instead of counting them) or isn't connected.
func (a *Adapter) QueryStats() dsql.StatsSnapshot {
	if a.stats == nil {
		return dsql.StatsSnapshot{}
	}
	return a.stats.QueryStats().Stats()
}

func (a *Adapter) Close(ctx context.Context) error {
	if a.driver == nil {
		return nil
	}
	return a.driver.Close()
}

func (a *Adapter) Status(ctx context.Context) polyquery.Status {
	st := polyquery.Status{Backend: a.dialectName, Driver: "database/sql", State: polyquery.StateDisconnected}
	if a.driver == nil {
		return st
	}
	st.State = polyquery.StateConnected
	st.Uptime = time.Since(a.connectedAt)
	dbStats := a.driver.DB().Stats()
	st.Pool = polyquery.PoolStatus{
		Active:  dbStats.InUse,
		Idle:    dbStats.Idle,
		Waiting: int(dbStats.WaitCount),
		Max:     dbStats.MaxOpenConnections,
	}
	return st
}

func (a *Adapter) exec(ctx context.Context, stmt dsql.Statement) (sql.Result, error) {
	var res sql.Result
	if err := a.conn.Exec(ctx, stmt.Query, stmt.Values, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Adapter) query(ctx context.Context, stmt dsql.Statement) ([]map[string]any, error) {
	var rows dsql.Rows
	if err := a.conn.Query(ctx, stmt.Query, stmt.Values, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(&rows)
}

func scanRows(rows *dsql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (a *Adapter) QueryOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) (map[string]any, error) {
	stmt, err := dsql.BuildSelect(collection, f, dsql.BuildOptions{
		Dialect: a.dialectName, Projection: opts.Projection, Sort: opts.Sort,
		SingleRow: true, AllowUnbounded: true,
	})
	if err != nil {
		return nil, err
	}
	rows, err := a.query(ctx, stmt)
	if err != nil {
		return nil, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("queryOne")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (a *Adapter) QueryMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.QueryOptions) ([]map[string]any, error) {
	stmt, err := dsql.BuildSelect(collection, f, dsql.BuildOptions{
		Dialect: a.dialectName, Projection: opts.Projection, Sort: opts.Sort,
		Skip: opts.Skip, Limit: opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	rows, err := a.query(ctx, stmt)
	if err != nil {
		return nil, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("queryMany")
	}
	return rows, nil
}

// QueryWithLookup runs the two-query join: the primary row via
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
// primary rows, then a single foreign QueryMany for every distinct
// local value across all of them (via $in), grouped and attached per
// row by lookup.BatchAttach.
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
	stmt, err := dsql.BuildCount(collection, f, a.dialectName)
	if err != nil {
		return 0, err
	}
	rows, err := a.query(ctx, stmt)
	if err != nil {
		return 0, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("count")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	switch n := rows[0]["count"].(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, nil
	}
}

func (a *Adapter) InsertOne(ctx context.Context, collection string, doc map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertOne, collection, a.dialectName)
	stmt, err := dsql.BuildInsert(collection, doc, a.dialectName)
	if err != nil {
		return r, err
	}
	if _, err := a.exec(ctx, stmt); err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("insertOne")
	}
	r.Inserted = 1
	return r, nil
}

func (a *Adapter) InsertMany(ctx context.Context, collection string, docs []map[string]any) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpInsertMany, collection, a.dialectName)
	stmt, err := dsql.BuildInsertMany(collection, docs, a.dialectName)
	if err != nil {
		return r, err
	}
	if _, err := a.exec(ctx, stmt); err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("insertMany")
	}
	r.Inserted = int64(len(docs))
	return r, nil
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateOne, collection, a.dialectName)
	allowUnbounded := f.IsEmpty() && !a.guardrailsEnabled
	stmt, err := dsql.BuildUpdate(collection, f, u, dsql.BuildOptions{
		Dialect: a.dialectName, SingleRow: true, AllowUnbounded: allowUnbounded,
	})
	if err != nil {
		return r, err
	}
	res, err := a.exec(ctx, stmt)
	if err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("updateOne")
	}
	affected, _ := res.RowsAffected()
	r.Matched, r.Modified = affected, affected

	if affected == 0 && opts.Upsert {
		insertDoc := dsql.UpsertInsertDoc(f, u)
		insertStmt, err := dsql.BuildInsert(collection, insertDoc, a.dialectName)
		if err != nil {
			return r, err
		}
		if _, err := a.exec(ctx, insertStmt); err != nil {
			return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("updateOne")
		}
		r.Inserted = 1
	}
	return r, nil
}

func (a *Adapter) UpdateMany(ctx context.Context, collection string, f polyquery.Filter, u polyquery.Update, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpUpdateMany, collection, a.dialectName)
	stmt, err := dsql.BuildUpdate(collection, f, u, dsql.BuildOptions{Dialect: a.dialectName})
	if err != nil {
		return r, err
	}
	res, err := a.exec(ctx, stmt)
	if err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("updateMany")
	}
	affected, _ := res.RowsAffected()
	r.Matched, r.Modified = affected, affected
	return r, nil
}

func (a *Adapter) DeleteOne(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteOne, collection, a.dialectName)
	stmt, err := dsql.BuildDelete(collection, f, dsql.BuildOptions{
		Dialect: a.dialectName, SingleRow: true, AllowUnbounded: f.IsEmpty() && !a.guardrailsEnabled,
	})
	if err != nil {
		return r, err
	}
	res, err := a.exec(ctx, stmt)
	if err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("deleteOne")
	}
	affected, _ := res.RowsAffected()
	r.Deleted = affected
	return r, nil
}

func (a *Adapter) DeleteMany(ctx context.Context, collection string, f polyquery.Filter, opts polyquery.WriteOptions) (polyquery.Receipt, error) {
	r := polyquery.NewReceipt(polyquery.OpDeleteMany, collection, a.dialectName)
	stmt, err := dsql.BuildDelete(collection, f, dsql.BuildOptions{Dialect: a.dialectName})
	if err != nil {
		return r, err
	}
	res, err := a.exec(ctx, stmt)
	if err != nil {
		return r, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("deleteMany")
	}
	affected, _ := res.RowsAffected()
	r.Deleted = affected
	return r, nil
}

// WithTransaction implements adapter.TransactionalAdapter by running
// fn against a transaction-scoped Adapter sharing the one driver
// handle for the scope's duration.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := a.driver.Tx(ctx)
	if err != nil {
		return errormap.MapSQLError(err, a.dialectName, "").WithOperation("withTransaction")
	}
	txHandle, ok := tx.(*dsql.Tx)
	if !ok {
		return polyquery.NewError(polyquery.CodeInternalError, "transaction handle has unexpected type", "retry the operation").WithBackend(a.dialectName)
	}
	scoped := &Adapter{dialectName: a.dialectName, guardrailsEnabled: a.guardrailsEnabled, registry: a.registry, conn: txHandle}
	if err := fn(withTxAdapter(ctx, scoped)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errormap.MapSQLError(err, a.dialectName, "").WithOperation("withTransaction")
	}
	return nil
}

type txAdapterKey struct{}

func withTxAdapter(ctx context.Context, a *Adapter) context.Context {
	return context.WithValue(ctx, txAdapterKey{}, a)
}

// FromContext returns the transaction-scoped Adapter stashed by
// WithTransaction, if the call is running inside one.
func FromContext(ctx context.Context) (*Adapter, bool) {
	a, ok := ctx.Value(txAdapterKey{}).(*Adapter)
	return a, ok
}

// DescribeCollection reports the registered schema for collection when
// one was attached via SetRegistry, falling back to the column names
// discovered by introspecting the live table.
func (a *Adapter) DescribeCollection(ctx context.Context, collection string) (adapter.CollectionInfo, error) {
	count, err := a.GetDocumentCount(ctx, collection)
	if err != nil {
		return adapter.CollectionInfo{}, err
	}
	if a.registry != nil {
		if c, ok := a.registry.Lookup(collection); ok {
			return adapter.CollectionInfo{Name: c.Name, Fields: c.Fields, Indexes: c.Indexes, Count: count}, nil
		}
	}
	names, err := a.columnNames(ctx, collection)
	if err != nil {
		return adapter.CollectionInfo{}, err
	}
	fields := make([]*polyschema.Field, len(names))
	for i, n := range names {
		fields[i] = polyschema.String(n)
	}
	return adapter.CollectionInfo{Name: collection, Fields: fields, Count: count}, nil
}

func (a *Adapter) columnNames(ctx context.Context, collection string) ([]string, error) {
	stmt, err := dsql.BuildSelect(collection, polyquery.Filter{}, dsql.BuildOptions{Dialect: a.dialectName, SingleRow: true, AllowUnbounded: true})
	if err != nil {
		return nil, err
	}
	var rows dsql.Rows
	if err := a.conn.Query(ctx, stmt.Query, stmt.Values, &rows); err != nil {
		return nil, errormap.MapSQLError(err, a.dialectName, collection).WithOperation("describeCollection")
	}
	defer rows.Close()
	return rows.Columns()
}

func (a *Adapter) GetDocumentCount(ctx context.Context, collection string) (int64, error) {
	return a.Count(ctx, collection, polyquery.Filter{})
}

// Explain renders the SELECT statement that QueryMany would execute,
// without running it.
func (a *Adapter) Explain(collection string, f polyquery.Filter, opts polyquery.QueryOptions) (string, error) {
	stmt, err := dsql.BuildSelect(collection, f, dsql.BuildOptions{
		Dialect: a.dialectName, Projection: opts.Projection, Sort: opts.Sort,
		Skip: opts.Skip, Limit: opts.Limit,
	})
	if err != nil {
		return "", err
	}
	return stmt.Query, nil
}

// EnsureCollections creates any table in collections that doesn't
// already exist, deriving columns from the declared schema field
// types (string/number/bool/time map onto each dialect's nearest
// type; object/array/enum fall back to a text column).
func (a *Adapter) EnsureCollections(ctx context.Context, collections []*polyschema.Collection) error {
	for _, c := range collections {
		table := ddlTableFor(c)
		ddl := schema.CreateTableStatement(table, a.dialectName)
		if _, err := a.exec(ctx, dsql.Statement{Query: ddl}); err != nil {
			return errormap.MapSQLError(err, a.dialectName, c.Name).WithOperation("ensureCollections")
		}
	}
	return nil
}

// EnsureIndexes creates the indexes declared on each collection
// (single-field Indexed() fields plus compound Indexes entries) that
// don't already exist.
func (a *Adapter) EnsureIndexes(ctx context.Context, collections []*polyschema.Collection) error {
	for _, c := range collections {
		for _, ddl := range schema.CreateIndexStatements(ddlTableFor(c), a.dialectName) {
			if _, err := a.exec(ctx, dsql.Statement{Query: ddl}); err != nil {
				return errormap.MapSQLError(err, a.dialectName, c.Name).WithOperation("ensureIndexes")
			}
		}
	}
	return nil
}

func ddlTableFor(c *polyschema.Collection) *schema.Table {
	table := &schema.Table{Name: c.Name}
	for _, f := range c.Fields {
		col := &schema.Column{Name: f.Name(), Nullable: !f.IsRequired()}
		switch f.Type() {
		case polyschema.TypeString, polyschema.TypeEnum:
			col.Type = "string"
		case polyschema.TypeNumber:
			col.Type = "float"
		case polyschema.TypeBool:
			col.Type = "bool"
		case polyschema.TypeTime:
			col.Type = "time"
		default:
			col.Type = "json"
		}
		table.Columns = append(table.Columns, col)
		if f.IsIndexed() {
			table.Indexes = append(table.Indexes, &schema.Index{Name: c.Name + "_" + f.Name() + "_idx", Columns: []*schema.Column{col}})
		}
	}
	for i, idx := range c.Indexes {
		var cols []*schema.Column
		for _, name := range idx {
			if col, ok := findColumn(table, name); ok {
				cols = append(cols, col)
			}
		}
		if len(cols) > 0 {
			table.Indexes = append(table.Indexes, &schema.Index{Name: fmt.Sprintf("%s_compound_%d_idx", c.Name, i), Columns: cols})
		}
	}
	return table
}

func findColumn(t *schema.Table, name string) (*schema.Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
