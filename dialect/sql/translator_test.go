package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/dialect"
)

func TestTranslateFilter_Empty(t *testing.T) {
	clause, values, err := TranslateFilter(dialect.Postgres, polyquery.Filter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "1=1", clause)
	assert.Empty(t, values)
}

func TestTranslateFilter_PlaceholderStylePerDialect(t *testing.T) {
	tests := []struct {
		dialectName string
		want        string
	}{
		{dialect.Postgres, `"age" = $1`},
		{dialect.MySQL, `"age" = ?`},
		{dialect.SQLite, `"age" = ?`},
		{dialect.MSSQL, `"age" = @p1`},
	}
	for _, tt := range tests {
		t.Run(tt.dialectName, func(t *testing.T) {
			clause, values, err := TranslateFilter(tt.dialectName, polyquery.Filter{"age": 30}, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, clause)
			assert.Equal(t, []any{30}, values)
		})
	}
}

// Offsetting shifts only the placeholder numbers, never the clause
// shape or operator order: a builder stacking SET values ahead of
// WHERE values must get identical SQL text either way, just
// renumbered.
func TestTranslateFilter_OffsetObliviousness(t *testing.T) {
	f := polyquery.Filter{"age": polyquery.OpBag{polyquery.OpGTE: 21}}

	clause0, values0, err := TranslateFilter(dialect.Postgres, f, 0)
	require.NoError(t, err)
	clause2, values2, err := TranslateFilter(dialect.Postgres, f, 2)
	require.NoError(t, err)

	assert.Equal(t, `"age" >= $1`, clause0)
	assert.Equal(t, `"age" >= $3`, clause2)
	assert.Equal(t, values0, values2)
}

func TestTranslateFilter_PlaceholderDensityAcrossFields(t *testing.T) {
	f := polyquery.Filter{
		"age":  polyquery.OpBag{polyquery.OpGTE: 21, polyquery.OpLT: 65},
		"name": "alice",
	}
	clause, values, err := TranslateFilter(dialect.Postgres, f, 0)
	require.NoError(t, err)
	// keys sort "age" before "name"; within the bag, canonicalOps
	// orders $gte before $lt regardless of map iteration order.
	assert.Equal(t, `"age" >= $1 AND "age" < $2 AND "name" = $3`, clause)
	assert.Equal(t, []any{21, 65, "alice"}, values)
}

func TestTranslateFilter_InNin(t *testing.T) {
	clause, values, err := TranslateFilter(dialect.Postgres, polyquery.Filter{
		"status": polyquery.OpBag{polyquery.OpIn: []any{"a", "b", "c"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, `"status" IN ($1, $2, $3)`, clause)
	assert.Equal(t, []any{"a", "b", "c"}, values)

	clause, values, err = TranslateFilter(dialect.Postgres, polyquery.Filter{
		"status": polyquery.OpBag{polyquery.OpNin: []any{"x"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, `"status" NOT IN ($1)`, clause)
	assert.Equal(t, []any{"x"}, values)
}

func TestTranslateFilter_EmptyInNinShortCircuit(t *testing.T) {
	clause, values, err := TranslateFilter(dialect.Postgres, polyquery.Filter{
		"status": polyquery.OpBag{polyquery.OpIn: []any{}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "1=0", clause)
	assert.Empty(t, values)

	clause, values, err = TranslateFilter(dialect.Postgres, polyquery.Filter{
		"status": polyquery.OpBag{polyquery.OpNin: []any{}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "1=1", clause)
	assert.Empty(t, values)
}

func TestTranslateFilter_LogicalOr(t *testing.T) {
	f := polyquery.Filter{
		polyquery.KeyOr: []polyquery.Filter{
			{"status": "active"},
			{"status": "pending"},
		},
	}
	clause, values, err := TranslateFilter(dialect.Postgres, f, 0)
	require.NoError(t, err)
	assert.Equal(t, `(("status" = $1) OR ("status" = $2))`, clause)
	assert.Equal(t, []any{"active", "pending"}, values)
}

func TestTranslateFilter_Nor(t *testing.T) {
	f := polyquery.Filter{
		polyquery.KeyNor: []polyquery.Filter{{"status": "banned"}},
	}
	clause, _, err := TranslateFilter(dialect.Postgres, f, 0)
	require.NoError(t, err)
	assert.Equal(t, `NOT (("status" = $1))`, clause)
}

func TestTranslateFilter_NullEquality(t *testing.T) {
	clause, values, err := TranslateFilter(dialect.Postgres, polyquery.Filter{"deletedAt": nil}, 0)
	require.NoError(t, err)
	assert.Equal(t, `"deletedAt" IS NULL`, clause)
	assert.Empty(t, values)
}

func TestTranslateFilter_UnknownOperator(t *testing.T) {
	_, _, err := TranslateFilter(dialect.Postgres, polyquery.Filter{
		"age": polyquery.OpBag{"$bogus": 1},
	}, 0)
	require.Error(t, err)
	perr, ok := polyquery.AsError(err)
	require.True(t, ok)
	assert.Equal(t, polyquery.CodeUnknownOperator, perr.Code)
}

func TestTranslateFilter_StrayTopLevelOperator(t *testing.T) {
	_, _, err := TranslateFilter(dialect.Postgres, polyquery.Filter{"$eq": 1}, 0)
	require.Error(t, err)
	perr, ok := polyquery.AsError(err)
	require.True(t, ok)
	assert.Equal(t, polyquery.CodeUnknownOperator, perr.Code)
}

func TestTranslateFilter_RegexPerDialect(t *testing.T) {
	tests := []struct {
		dialectName string
		options     string
		want        string
	}{
		{dialect.Postgres, "", `"name" ~ $1`},
		{dialect.Postgres, "i", `"name" ~* $1`},
		{dialect.MySQL, "", `"name" REGEXP $1`},
		{dialect.MySQL, "i", `LOWER("name") REGEXP LOWER($1)`},
		{dialect.SQLite, "", `"name" LIKE ?`},
		{dialect.MSSQL, "", `"name" LIKE @p1`},
	}
	for _, tt := range tests {
		bag := polyquery.OpBag{polyquery.OpRegex: "^foo.*$"}
		if tt.options != "" {
			bag[polyquery.OpOptions] = tt.options
		}
		clause, _, err := TranslateFilter(tt.dialectName, polyquery.Filter{"name": bag}, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, clause)
	}
}

func TestTranslateFilter_MultilineRegexUnsupportedOnMSSQLAndSQLite(t *testing.T) {
	for _, d := range []string{dialect.MSSQL, dialect.SQLite} {
		_, _, err := TranslateFilter(d, polyquery.Filter{
			"name": polyquery.OpBag{polyquery.OpRegex: "foo", polyquery.OpOptions: "m"},
		}, 0)
		require.Error(t, err)
		perr, ok := polyquery.AsError(err)
		require.True(t, ok)
		assert.Equal(t, polyquery.CodeUnsupportedOperation, perr.Code)
	}
}

func TestTranslateFilter_Not(t *testing.T) {
	clause, values, err := TranslateFilter(dialect.Postgres, polyquery.Filter{
		"age": polyquery.OpBag{polyquery.OpNot: polyquery.OpBag{polyquery.OpEQ: 30}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, `NOT ("age" = $1)`, clause)
	assert.Equal(t, []any{30}, values)
}

func TestTranslateFilter_Size(t *testing.T) {
	for _, tt := range []struct {
		dialectName string
		want        string
	}{
		{dialect.Postgres, `jsonb_array_length("tags") = $1`},
		{dialect.MySQL, `JSON_LENGTH("tags") = ?`},
		{dialect.SQLite, `json_array_length("tags") = ?`},
		{dialect.MSSQL, `(SELECT COUNT(*) FROM OPENJSON("tags")) = @p1`},
	} {
		clause, values, err := TranslateFilter(tt.dialectName, polyquery.Filter{
			"tags": polyquery.OpBag{polyquery.OpSize: 3},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, clause)
		assert.Equal(t, []any{3}, values)
	}
}

func TestTranslateUpdate_SetIncUnset(t *testing.T) {
	u := polyquery.Update{
		Set:   map[string]any{"name": "alice"},
		Inc:   map[string]any{"views": 1},
		Unset: map[string]any{"draft": true},
	}
	clause, values, err := TranslateUpdate(dialect.Postgres, u, 0)
	require.NoError(t, err)
	assert.Equal(t, `"name" = $1, "views" = "views" + $2, "draft" = NULL`, clause)
	assert.Equal(t, []any{"alice", 1}, values)
}

func TestTranslateUpdate_EmptyIsQueryError(t *testing.T) {
	_, _, err := TranslateUpdate(dialect.Postgres, polyquery.Update{}, 0)
	require.Error(t, err)
	perr, ok := polyquery.AsError(err)
	require.True(t, ok)
	assert.Equal(t, polyquery.CodeQueryError, perr.Code)
}

func TestTranslateUpdate_OffsetContinuesFromFilterValues(t *testing.T) {
	u := polyquery.Update{Set: map[string]any{"name": "alice"}}
	setClause, setValues, err := TranslateUpdate(dialect.Postgres, u, 0)
	require.NoError(t, err)
	whereClause, whereValues, err := TranslateFilter(dialect.Postgres, polyquery.Filter{"id": 7}, len(setValues))
	require.NoError(t, err)

	assert.Equal(t, `"name" = $1`, setClause)
	assert.Equal(t, `"id" = $2`, whereClause)
	assert.Equal(t, []any{"alice", 7}, append(setValues, whereValues...))
}
