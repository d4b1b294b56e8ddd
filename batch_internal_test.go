package polyquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStep_UnsupportedKind(t *testing.T) {
	r := &Router{}
	_, err := r.runStep(context.Background(), BatchStep{Kind: "bogus"})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUnsupportedOperation))
}

func TestReceipt_Accumulate_SumsPerStepCounts(t *testing.T) {
	agg := NewReceipt(OpBatch, "batch", "mongo")
	agg.Accumulate(Receipt{Inserted: 1, Success: true})
	agg.Accumulate(Receipt{Modified: 2, Matched: 2, Success: true})
	agg.Accumulate(Receipt{Deleted: 3, Success: true})

	assert.Equal(t, int64(1), agg.Inserted)
	assert.Equal(t, int64(2), agg.Modified)
	assert.Equal(t, int64(2), agg.Matched)
	assert.Equal(t, int64(3), agg.Deleted)
	assert.True(t, agg.Success)
}

func TestReceipt_Accumulate_AnyFailureFailsTheAggregate(t *testing.T) {
	agg := NewReceipt(OpBatch, "batch", "mongo")
	agg.Accumulate(Receipt{Inserted: 1, Success: true})
	agg.Accumulate(Receipt{Success: false})
	agg.Accumulate(Receipt{Inserted: 1, Success: true})

	assert.False(t, agg.Success)
	assert.Equal(t, int64(2), agg.Inserted)
}

func TestAllInserts_EmptyIsFalse(t *testing.T) {
	assert.False(t, allInserts(nil))
	assert.False(t, allInserts([]BatchStep{}))
}
