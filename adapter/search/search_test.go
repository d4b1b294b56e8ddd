package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyquery/polyquery"
)

func TestAdapter_Backend(t *testing.T) {
	a := New([]string{"http://localhost:9200"})
	assert.Equal(t, "elastic", a.Backend())
}

func TestSortClause_Empty(t *testing.T) {
	assert.Nil(t, sortClause(nil))
}

func TestSortClause_AscendingAndDescending(t *testing.T) {
	s := polyquery.Sort{
		{Field: "name", Direction: polyquery.Ascending},
		{Field: "age", Direction: polyquery.Descending},
	}
	got := sortClause(s)
	require.Len(t, got, 2)
	assert.Equal(t, "asc", got[0]["name"])
	assert.Equal(t, "desc", got[1]["age"])
}

func TestWithProjectionExclusion_NoExclusionReturnsSameMap(t *testing.T) {
	doc := map[string]any{"name": "bob", "age": 30}
	got := withProjectionExclusion(doc, polyquery.QueryOptions{})
	assert.Equal(t, doc, got)
}

func TestWithProjectionExclusion_RemovesExcludedFieldsWithoutMutatingInput(t *testing.T) {
	doc := map[string]any{"name": "bob", "age": 30, "ssn": "secret"}
	opts := polyquery.QueryOptions{Projection: polyquery.Projection{Exclude: []string{"ssn"}}}

	got := withProjectionExclusion(doc, opts)
	assert.NotContains(t, got, "ssn")
	assert.Contains(t, doc, "ssn", "original document must not be mutated")
}

func TestUpsertInsertDoc_MergesFilterEqualityAndSetFields(t *testing.T) {
	f := polyquery.Filter{"email": "bob@example.com"}
	u := polyquery.Update{Set: map[string]any{"name": "bob"}}

	got := upsertInsertDoc(f, u)
	assert.Equal(t, map[string]any{"email": "bob@example.com", "name": "bob"}, got)
}

func TestUpsertInsertDoc_SkipsOperatorKeysFromFilter(t *testing.T) {
	f := polyquery.Filter{polyquery.KeyAnd: []polyquery.Filter{{"email": "bob@example.com"}}}
	u := polyquery.Update{Set: map[string]any{"name": "bob"}}

	got := upsertInsertDoc(f, u)
	assert.Equal(t, map[string]any{"name": "bob"}, got)
}

func TestAdapter_Explain_RendersQueryDSL(t *testing.T) {
	a := New([]string{"http://localhost:9200"})
	out, err := a.Explain("users", polyquery.Filter{"name": "bob"}, polyquery.QueryOptions{
		Sort: polyquery.Sort{{Field: "name", Direction: polyquery.Ascending}},
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"query"`))
	assert.True(t, strings.Contains(out, "bob"))
	assert.True(t, strings.Contains(out, `"sort"`))
}

func TestAdapter_Explain_OmitsSortWhenUnset(t *testing.T) {
	a := New([]string{"http://localhost:9200"})
	out, err := a.Explain("users", polyquery.Filter{"name": "bob"}, polyquery.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, `"sort"`))
}
