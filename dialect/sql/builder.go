package sql

import (
	"strconv"
	"strings"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/dialect"
)

// Statement is a fully assembled SQL statement ready to hand to a
// driver, with its positional argument list in the order the
// placeholders appear.
type Statement struct {
	Query  string
	Values []any
}

// BuildOptions configures statement assembly. Dialect is required;
// the rest apply only to the operations that use them.
type BuildOptions struct {
	Dialect    string
	Projection polyquery.Projection
	Sort       polyquery.Sort
	Skip       *int
	Limit      *int

	// SingleRow requests at-most-one-row targeting emulation for
	// UPDATE/DELETE. AllowUnbounded skips that emulation when true;
	// the relational adapter sets it only for an empty filter while
	// guardrails are disabled.
	SingleRow      bool
	AllowUnbounded bool
}

func orderBy(dialectName string, sort polyquery.Sort) string {
	if len(sort) == 0 {
		return ""
	}
	parts := make([]string, len(sort))
	for i, s := range sort {
		dir := "ASC"
		if s.Direction < 0 {
			dir = "DESC"
		}
		parts[i] = quoteIdent(s.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func selectColumns(proj polyquery.Projection) string {
	if len(proj.Include) > 0 && len(proj.Exclude) == 0 {
		cols := make([]string, len(proj.Include))
		for i, c := range proj.Include {
			cols[i] = quoteIdent(c)
		}
		return strings.Join(cols, ", ")
	}
	return "*"
}

// BuildSelect assembles a full SELECT, applying the MSSQL pagination
// decision table when dialectName is dialect.MSSQL and plain
// LIMIT/OFFSET for every other dialect.
func BuildSelect(table string, f polyquery.Filter, opts BuildOptions) (Statement, error) {
	clause, values, err := TranslateFilter(opts.Dialect, f, 0)
	if err != nil {
		return Statement{}, err
	}

	cols := selectColumns(opts.Projection)
	order := orderBy(opts.Dialect, opts.Sort)

	var b strings.Builder
	if opts.Dialect == dialect.MSSQL && opts.Skip == nil && opts.Limit != nil {
		b.WriteString("SELECT TOP(" + strconv.Itoa(*opts.Limit) + ") " + cols + " FROM " + quoteIdent(table))
	} else {
		b.WriteString("SELECT " + cols + " FROM " + quoteIdent(table))
	}
	if clause != "1=1" {
		b.WriteString(" WHERE " + clause)
	}

	switch {
	case opts.Dialect == dialect.MSSQL:
		switch {
		case opts.Skip == nil && opts.Limit != nil:
			// TOP(n) already applied above.
		case opts.Skip != nil && opts.Limit != nil:
			if order == "" {
				b.WriteString(" ORDER BY (SELECT NULL)")
			} else {
				b.WriteString(order)
			}
			b.WriteString(" OFFSET " + strconv.Itoa(*opts.Skip) + " ROWS FETCH NEXT " + strconv.Itoa(*opts.Limit) + " ROWS ONLY")
		case opts.Skip != nil && opts.Limit == nil:
			if order == "" {
				b.WriteString(" ORDER BY (SELECT NULL)")
			} else {
				b.WriteString(order)
			}
			b.WriteString(" OFFSET " + strconv.Itoa(*opts.Skip) + " ROWS")
		default:
			b.WriteString(order)
		}
	default:
		b.WriteString(order)
		if opts.Limit != nil {
			b.WriteString(" LIMIT " + strconv.Itoa(*opts.Limit))
		}
		if opts.Skip != nil {
			b.WriteString(" OFFSET " + strconv.Itoa(*opts.Skip))
		}
	}

	return Statement{Query: b.String(), Values: values}, nil
}

// BuildCount assembles `SELECT COUNT(*) AS count FROM <table> [WHERE
// ...]`.
func BuildCount(table string, f polyquery.Filter, dialectName string) (Statement, error) {
	clause, values, err := TranslateFilter(dialectName, f, 0)
	if err != nil {
		return Statement{}, err
	}
	q := "SELECT COUNT(*) AS count FROM " + quoteIdent(table)
	if clause != "1=1" {
		q += " WHERE " + clause
	}
	return Statement{Query: q, Values: values}, nil
}

// BuildInsert assembles a single-row INSERT with quoted columns and
// positional placeholders, in sorted column order for determinism.
func BuildInsert(table string, doc map[string]any, dialectName string) (Statement, error) {
	return BuildInsertMany(table, []map[string]any{doc}, dialectName)
}

// BuildInsertMany assembles one INSERT statement covering every row,
// sharing the column list taken from the first row; parameter indices
// increase globally across all tuples.
func BuildInsertMany(table string, docs []map[string]any, dialectName string) (Statement, error) {
	if len(docs) == 0 {
		return Statement{}, polyquery.NewError(polyquery.CodeQueryError, "insert requires at least one document", "")
	}
	cols := sortedKeys(docs[0])
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	pc := newParamCounter(styleFor(dialectName), 0)
	values := make([]any, 0, len(cols)*len(docs))
	tuples := make([]string, len(docs))
	for ri, doc := range docs {
		phs := make([]string, len(cols))
		for ci, c := range cols {
			phs[ci] = pc.placeholder()
			values = append(values, doc[c])
		}
		tuples[ri] = "(" + strings.Join(phs, ", ") + ")"
	}

	q := "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	return Statement{Query: q, Values: values}, nil
}

// BuildUpdate assembles `UPDATE <table> SET ... [WHERE ...]`, applying
// single-row emulation when opts.SingleRow is set and the
// filter is not exempt via opts.AllowUnbounded.
func BuildUpdate(table string, f polyquery.Filter, u polyquery.Update, opts BuildOptions) (Statement, error) {
	setClause, setValues, err := TranslateUpdate(opts.Dialect, u, 0)
	if err != nil {
		return Statement{}, err
	}
	whereClause, whereValues, err := TranslateFilter(opts.Dialect, f, len(setValues))
	if err != nil {
		return Statement{}, err
	}
	values := append(setValues, whereValues...)

	limitOne := opts.SingleRow && !opts.AllowUnbounded

	var q string
	switch {
	case limitOne && (opts.Dialect == dialect.Postgres || opts.Dialect == dialect.SQLite):
		rowCol := "ctid"
		if opts.Dialect == dialect.SQLite {
			rowCol = "rowid"
		}
		q = "UPDATE " + quoteIdent(table) + " SET " + setClause +
			" WHERE " + rowCol + " = (SELECT " + rowCol + " FROM " + quoteIdent(table) +
			" WHERE " + whereClause + " LIMIT 1)"
	case limitOne && opts.Dialect == dialect.MySQL:
		q = "UPDATE " + quoteIdent(table) + " SET " + setClause + " WHERE " + whereClause + " LIMIT 1"
	case limitOne && opts.Dialect == dialect.MSSQL:
		q = "UPDATE TOP(1) " + quoteIdent(table) + " SET " + setClause + " WHERE " + whereClause
	default:
		q = "UPDATE " + quoteIdent(table) + " SET " + setClause
		if whereClause != "1=1" {
			q += " WHERE " + whereClause
		}
	}

	return Statement{Query: q, Values: values}, nil
}

// BuildDelete assembles `DELETE FROM <table> [WHERE ...]`, applying
// single-row emulation when requested.
func BuildDelete(table string, f polyquery.Filter, opts BuildOptions) (Statement, error) {
	whereClause, values, err := TranslateFilter(opts.Dialect, f, 0)
	if err != nil {
		return Statement{}, err
	}

	limitOne := opts.SingleRow && !opts.AllowUnbounded

	var q string
	switch {
	case limitOne && (opts.Dialect == dialect.Postgres || opts.Dialect == dialect.SQLite):
		rowCol := "ctid"
		if opts.Dialect == dialect.SQLite {
			rowCol = "rowid"
		}
		q = "DELETE FROM " + quoteIdent(table) +
			" WHERE " + rowCol + " = (SELECT " + rowCol + " FROM " + quoteIdent(table) +
			" WHERE " + whereClause + " LIMIT 1)"
	case limitOne && opts.Dialect == dialect.MySQL:
		q = "DELETE FROM " + quoteIdent(table) + " WHERE " + whereClause + " LIMIT 1"
	case limitOne && opts.Dialect == dialect.MSSQL:
		q = "DELETE TOP(1) FROM " + quoteIdent(table) + " WHERE " + whereClause
	default:
		q = "DELETE FROM " + quoteIdent(table)
		if whereClause != "1=1" {
			q += " WHERE " + whereClause
		}
	}

	return Statement{Query: q, Values: values}, nil
}

// UpsertInsertDoc assembles the document an upsert falls back to
// inserting when the single-row UPDATE affects zero rows: the
// equality-style fields present in the filter (non-$ keys whose
// values are scalars, i.e. not operator bags or logical arrays)
// unioned with the update's $set map, $set taking precedence on
// overlap.
func UpsertInsertDoc(f polyquery.Filter, u polyquery.Update) map[string]any {
	doc := make(map[string]any, len(f)+len(u.Set))
	for k, v := range f {
		if strings.HasPrefix(k, "$") {
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
