package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/polyquery/polyquery"
)

func TestFilterToBSON_FlatEquality(t *testing.T) {
	got := filterToBSON(polyquery.Filter{"name": "alice", "age": 30})
	assert.Equal(t, bson.M{"name": "alice", "age": 30}, got)
}

func TestFilterToBSON_OpBagPassesThroughAsOperatorMap(t *testing.T) {
	got := filterToBSON(polyquery.Filter{"age": polyquery.OpBag{polyquery.OpGTE: 18}})
	assert.Equal(t, bson.M{"age": bson.M{polyquery.OpGTE: 18}}, got)
}

func TestFilterToBSON_AndNestsSubFilters(t *testing.T) {
	f := polyquery.Filter{
		polyquery.KeyAnd: []polyquery.Filter{
			{"name": "alice"},
			{"age": polyquery.OpBag{polyquery.OpGTE: 18}},
		},
	}
	got := filterToBSON(f)
	and, ok := got[polyquery.KeyAnd].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Equal(t, bson.M{"name": "alice"}, and[0])
	assert.Equal(t, bson.M{"age": bson.M{polyquery.OpGTE: 18}}, and[1])
}

func TestFilterToBSON_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, filterToBSON(polyquery.Filter{}))
}

func TestUpdateToBSON_OnlySetsPresentOperators(t *testing.T) {
	u := polyquery.Update{Set: map[string]any{"name": "bob"}}
	got := updateToBSON(u)
	assert.Equal(t, bson.M{"$set": bson.M{"name": "bob"}}, got)
	assert.NotContains(t, got, "$inc")
	assert.NotContains(t, got, "$unset")
}

func TestUpdateToBSON_UnsetRendersEmptyStringValues(t *testing.T) {
	u := polyquery.Update{Unset: map[string]any{"nickname": true}}
	got := updateToBSON(u)
	assert.Equal(t, bson.M{"$unset": bson.M{"nickname": ""}}, got)
}

func TestUpdateToBSON_AllOperatorsTogether(t *testing.T) {
	u := polyquery.Update{
		Set:   map[string]any{"name": "bob"},
		Inc:   map[string]any{"age": 1},
		Unset: map[string]any{"nickname": true},
		Push:  map[string]any{"tags": "new"},
		Pull:  map[string]any{"tags": "old"},
	}
	got := updateToBSON(u)
	assert.Contains(t, got, "$set")
	assert.Contains(t, got, "$inc")
	assert.Contains(t, got, "$unset")
	assert.Contains(t, got, "$push")
	assert.Contains(t, got, "$pull")
}

func TestAdapter_Explain_RendersFindCommand(t *testing.T) {
	a := New("mongodb://localhost:27017", "testdb")
	limit := 5
	out, err := a.Explain("users", polyquery.Filter{"name": "bob"}, polyquery.QueryOptions{Limit: &limit})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"find"`))
	assert.True(t, strings.Contains(out, "users"))
	assert.True(t, strings.Contains(out, "bob"))
	assert.True(t, strings.Contains(out, `"limit"`))
}

func TestAdapter_Explain_OmitsSkipAndLimitWhenUnset(t *testing.T) {
	a := New("mongodb://localhost:27017", "testdb")
	out, err := a.Explain("users", polyquery.Filter{}, polyquery.QueryOptions{})
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, `"limit"`))
	assert.False(t, strings.Contains(out, `"skip"`))
}

func TestAdapter_Backend(t *testing.T) {
	a := New("mongodb://localhost:27017", "testdb")
	assert.Equal(t, "mongo", a.Backend())
}
