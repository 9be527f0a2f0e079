package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": float64(1), "status": float64(2), "host": "10.0.0.1"},
		{"id": float64(2), "status": float64(4), "host": "10.0.0.2"},
		{"id": float64(3), "status": float64(4), "host": "10.0.0.3"},
	}
}

func TestApplyFilterEq(t *testing.T) {
	matched, err := ApplyFilter(records(), []FilterCondition{
		{Field: "status", Op: OpEq, Value: 4},
	})
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestApplyFilterNumericOps(t *testing.T) {
	matched, err := ApplyFilter(records(), []FilterCondition{
		{Field: "id", Op: OpGt, Value: 1},
		{Field: "id", Op: OpLte, Value: 2},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, float64(2), matched[0]["id"])
}

func TestApplyFilterIn(t *testing.T) {
	matched, err := ApplyFilter(records(), []FilterCondition{
		{Field: "host", Op: OpIn, Value: []string{"10.0.0.1", "10.0.0.3"}},
	})
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestApplyFilterNq(t *testing.T) {
	matched, err := ApplyFilter(records(), []FilterCondition{
		{Field: "status", Op: OpNq, Value: 4},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, float64(1), matched[0]["id"])
}

// 记录缺少条件字段时放行,保持与快照字段演进的兼容
func TestApplyFilterMissingFieldPasses(t *testing.T) {
	matched, err := ApplyFilter(records(), []FilterCondition{
		{Field: "percent", Op: OpGte, Value: 50},
	})
	require.NoError(t, err)
	assert.Len(t, matched, 3)
}

func TestApplyFilterMixedIntegerKinds(t *testing.T) {
	recs := []map[string]interface{}{
		{"id": uint64(1)},
		{"id": int32(2)},
	}
	matched, err := ApplyFilter(recs, []FilterCondition{
		{Field: "id", Op: OpEq, Value: 2},
	})
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestApplyFilterErrors(t *testing.T) {
	_, err := ApplyFilter(records(), []FilterCondition{
		{Field: "host", Op: OpLt, Value: 5},
	})
	assert.Error(t, err, "numeric op on string field")

	_, err = ApplyFilter(records(), []FilterCondition{
		{Field: "id", Op: OpIn, Value: 5},
	})
	assert.Error(t, err, "in op requires a slice")

	_, err = ApplyFilter(records(), []FilterCondition{
		{Field: "id", Op: FilterOp("like"), Value: 5},
	})
	assert.Error(t, err, "unsupported op")
}
