package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/dialect"
)

func intPtr(n int) *int { return &n }

func TestBuildSelect_MSSQLPaginationDecisionTable(t *testing.T) {
	f := polyquery.Filter{"status": "active"}

	tests := []struct {
		name string
		opts BuildOptions
		want string
	}{
		{
			name: "limit only uses TOP",
			opts: BuildOptions{Dialect: dialect.MSSQL, Limit: intPtr(10)},
			want: `SELECT TOP(10) * FROM "widgets" WHERE "status" = @p1`,
		},
		{
			name: "skip and limit uses OFFSET FETCH NEXT with NULL order fallback",
			opts: BuildOptions{Dialect: dialect.MSSQL, Skip: intPtr(5), Limit: intPtr(10)},
			want: `SELECT * FROM "widgets" WHERE "status" = @p1 ORDER BY (SELECT NULL) OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY`,
		},
		{
			name: "skip and limit with explicit sort keeps that order",
			opts: BuildOptions{Dialect: dialect.MSSQL, Skip: intPtr(5), Limit: intPtr(10), Sort: polyquery.Sort{{Field: "name", Direction: 1}}},
			want: `SELECT * FROM "widgets" WHERE "status" = @p1 ORDER BY "name" ASC OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY`,
		},
		{
			name: "skip only uses OFFSET with NULL order fallback",
			opts: BuildOptions{Dialect: dialect.MSSQL, Skip: intPtr(5)},
			want: `SELECT * FROM "widgets" WHERE "status" = @p1 ORDER BY (SELECT NULL) OFFSET 5 ROWS`,
		},
		{
			name: "neither skip nor limit is a plain select",
			opts: BuildOptions{Dialect: dialect.MSSQL},
			want: `SELECT * FROM "widgets" WHERE "status" = @p1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := BuildSelect("widgets", f, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Query)
		})
	}
}

func TestBuildSelect_NonMSSQLUsesPlainLimitOffset(t *testing.T) {
	f := polyquery.Filter{"status": "active"}
	tests := []struct {
		dialectName string
		want        string
	}{
		{dialect.Postgres, `SELECT * FROM "widgets" WHERE "status" = $1 LIMIT 10 OFFSET 5`},
		{dialect.MySQL, `SELECT * FROM "widgets" WHERE "status" = ? LIMIT 10 OFFSET 5`},
		{dialect.SQLite, `SELECT * FROM "widgets" WHERE "status" = ? LIMIT 10 OFFSET 5`},
	}
	for _, tt := range tests {
		t.Run(tt.dialectName, func(t *testing.T) {
			stmt, err := BuildSelect("widgets", f, BuildOptions{Dialect: tt.dialectName, Skip: intPtr(5), Limit: intPtr(10)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Query)
		})
	}
}

func TestBuildSelect_NoWhereWhenFilterEmpty(t *testing.T) {
	stmt, err := BuildSelect("widgets", polyquery.Filter{}, BuildOptions{Dialect: dialect.Postgres})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "widgets"`, stmt.Query)
	assert.Empty(t, stmt.Values)
}

func TestBuildSelect_ProjectionIncludeOnly(t *testing.T) {
	stmt, err := BuildSelect("widgets", polyquery.Filter{}, BuildOptions{
		Dialect:    dialect.Postgres,
		Projection: polyquery.Projection{Include: []string{"id", "name"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "widgets"`, stmt.Query)
}

func TestBuildSelect_ProjectionExcludeFallsBackToStar(t *testing.T) {
	stmt, err := BuildSelect("widgets", polyquery.Filter{}, BuildOptions{
		Dialect:    dialect.Postgres,
		Projection: polyquery.Projection{Exclude: []string{"secret"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "widgets"`, stmt.Query)
}

func TestBuildCount(t *testing.T) {
	stmt, err := BuildCount("widgets", polyquery.Filter{"status": "active"}, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS count FROM "widgets" WHERE "status" = $1`, stmt.Query)
	assert.Equal(t, []any{"active"}, stmt.Values)
}

func TestBuildCount_EmptyFilterOmitsWhere(t *testing.T) {
	stmt, err := BuildCount("widgets", polyquery.Filter{}, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) AS count FROM "widgets"`, stmt.Query)
}

func TestBuildInsert_SortedColumns(t *testing.T) {
	stmt, err := BuildInsert("widgets", map[string]any{"name": "foo", "id": 1}, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "widgets" ("id", "name") VALUES ($1, $2)`, stmt.Query)
	assert.Equal(t, []any{1, "foo"}, stmt.Values)
}

func TestBuildInsertMany_SharedColumnsGlobalPlaceholders(t *testing.T) {
	docs := []map[string]any{
		{"id": 1, "name": "foo"},
		{"id": 2, "name": "bar"},
	}
	stmt, err := BuildInsertMany("widgets", docs, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "widgets" ("id", "name") VALUES ($1, $2), ($3, $4)`, stmt.Query)
	assert.Equal(t, []any{1, "foo", 2, "bar"}, stmt.Values)
}

func TestBuildInsertMany_EmptyIsQueryError(t *testing.T) {
	_, err := BuildInsertMany("widgets", nil, dialect.Postgres)
	require.Error(t, err)
	perr, ok := polyquery.AsError(err)
	require.True(t, ok)
	assert.Equal(t, polyquery.CodeQueryError, perr.Code)
}

func TestBuildUpdate_PlainUpdate(t *testing.T) {
	stmt, err := BuildUpdate("widgets", polyquery.Filter{"id": 1},
		polyquery.Update{Set: map[string]any{"name": "alice"}}, BuildOptions{Dialect: dialect.Postgres})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = $1 WHERE "id" = $2`, stmt.Query)
	assert.Equal(t, []any{"alice", 1}, stmt.Values)
}

func TestBuildUpdate_EmptyFilterOmitsWhere(t *testing.T) {
	stmt, err := BuildUpdate("widgets", polyquery.Filter{},
		polyquery.Update{Set: map[string]any{"name": "alice"}}, BuildOptions{Dialect: dialect.Postgres})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = $1`, stmt.Query)
}

func TestBuildUpdate_SingleRowEmulationPerDialect(t *testing.T) {
	f := polyquery.Filter{"id": 1}
	u := polyquery.Update{Set: map[string]any{"name": "alice"}}
	opts := func(d string) BuildOptions {
		return BuildOptions{Dialect: d, SingleRow: true}
	}

	stmt, err := BuildUpdate("widgets", f, u, opts(dialect.Postgres))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = $1 WHERE ctid = (SELECT ctid FROM "widgets" WHERE "id" = $2 LIMIT 1)`, stmt.Query)

	stmt, err = BuildUpdate("widgets", f, u, opts(dialect.SQLite))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = ? WHERE rowid = (SELECT rowid FROM "widgets" WHERE "id" = ? LIMIT 1)`, stmt.Query)

	stmt, err = BuildUpdate("widgets", f, u, opts(dialect.MySQL))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = ? WHERE "id" = ? LIMIT 1`, stmt.Query)

	stmt, err = BuildUpdate("widgets", f, u, opts(dialect.MSSQL))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE TOP(1) "widgets" SET "name" = @p1 WHERE "id" = @p2`, stmt.Query)
}

func TestBuildUpdate_AllowUnboundedSkipsSingleRowEmulation(t *testing.T) {
	stmt, err := BuildUpdate("widgets", polyquery.Filter{},
		polyquery.Update{Set: map[string]any{"name": "alice"}},
		BuildOptions{Dialect: dialect.Postgres, SingleRow: true, AllowUnbounded: true})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "widgets" SET "name" = $1`, stmt.Query)
}

func TestBuildDelete_SingleRowEmulationPerDialect(t *testing.T) {
	f := polyquery.Filter{"id": 1}
	opts := func(d string) BuildOptions {
		return BuildOptions{Dialect: d, SingleRow: true}
	}

	stmt, err := BuildDelete("widgets", f, opts(dialect.Postgres))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "widgets" WHERE ctid = (SELECT ctid FROM "widgets" WHERE "id" = $1 LIMIT 1)`, stmt.Query)

	stmt, err = BuildDelete("widgets", f, opts(dialect.SQLite))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "widgets" WHERE rowid = (SELECT rowid FROM "widgets" WHERE "id" = ? LIMIT 1)`, stmt.Query)

	stmt, err = BuildDelete("widgets", f, opts(dialect.MySQL))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "widgets" WHERE "id" = ? LIMIT 1`, stmt.Query)

	stmt, err = BuildDelete("widgets", f, opts(dialect.MSSQL))
	require.NoError(t, err)
	assert.Equal(t, `DELETE TOP(1) FROM "widgets" WHERE "id" = @p1`, stmt.Query)
}

func TestBuildDelete_EmptyFilterOmitsWhere(t *testing.T) {
	stmt, err := BuildDelete("widgets", polyquery.Filter{}, BuildOptions{Dialect: dialect.Postgres})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "widgets"`, stmt.Query)
}

func TestUpsertInsertDoc_MergesScalarFilterFieldsWithSet(t *testing.T) {
	f := polyquery.Filter{
		"email":  "a@example.com",
		"status": polyquery.OpBag{polyquery.OpEQ: "active"},
	}
	u := polyquery.Update{Set: map[string]any{"name": "alice"}}

	doc := UpsertInsertDoc(f, u)
	assert.Equal(t, map[string]any{"email": "a@example.com", "name": "alice"}, doc)
}

func TestUpsertInsertDoc_SetTakesPrecedenceOverFilter(t *testing.T) {
	f := polyquery.Filter{"name": "bob"}
	u := polyquery.Update{Set: map[string]any{"name": "alice"}}

	doc := UpsertInsertDoc(f, u)
	assert.Equal(t, map[string]any{"name": "alice"}, doc)
}

func TestUpsertInsertDoc_IgnoresLogicalOperatorKeys(t *testing.T) {
	f := polyquery.Filter{
		polyquery.KeyOr: []polyquery.Filter{{"status": "active"}},
		"email":         "a@example.com",
	}
	doc := UpsertInsertDoc(f, polyquery.Update{})
	assert.Equal(t, map[string]any{"email": "a@example.com"}, doc)
}
