package polyquery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyquery/polyquery/adapter"
	"github.com/polyquery/polyquery/schema"
)

func TestDescribe_FromRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	reg.Register(usersCollection())
	adp := &fakeAdapter{documentCount: 7}
	r := newTestRouter(adp, reg)

	desc, err := r.Describe(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "users", desc.Name)
	assert.Len(t, desc.Fields, 3)
	assert.Equal(t, int64(7), desc.DocumentCount)
	assert.Equal(t, Filter{"name": "example", "age": OpBag{OpGTE: 0}}, desc.ExampleFilter)
}

func TestDescribe_FallsBackToAdapterWhenNoSchema(t *testing.T) {
	adp := &fakeAdapter{
		describeInfo: adapter.CollectionInfo{
			Name:   "events",
			Fields: []*schema.Field{schema.String("kind")},
			Count:  3,
		},
	}
	r := newTestRouter(adp, schema.NewRegistry())

	desc, err := r.Describe(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, "events", desc.Name)
	assert.Equal(t, int64(3), desc.DocumentCount)
	assert.Equal(t, Filter{"kind": "example"}, desc.ExampleFilter)
}

func TestDescribe_DedupesConcurrentCountCalls(t *testing.T) {
	reg := schema.NewRegistry()
	reg.Register(usersCollection())
	adp := &fakeAdapter{documentCount: 1}
	r := newTestRouter(adp, reg)

	var wg sync.WaitGroup
	results := make([]int64, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			count, err := r.getDocumentCount(context.Background(), adp, "users")
			require.NoError(t, err)
			results[i] = count
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, int64(1), v)
	}
	assert.True(t, adp.countCalls >= 1)
}
