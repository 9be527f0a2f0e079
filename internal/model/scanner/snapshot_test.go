package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanmaster/internal/model/basemodel"
)

func TestTargetSnapshotRoundtrip(t *testing.T) {
	target := &Target{
		BaseModel: basemodel.BaseModel{ID: 42},
		Host:      "10.0.0.8",
		Status:    TargetRunning,
		ToolID:    3,
		OrderID:   7,
		ScanBy:    11,
		Retry:     1,
		ScanTime:  30,
	}

	snap := NewTargetSnapshot(target, 120)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, 120, snap.TimeLimit)

	raw, err := snap.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTargetSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), decoded.ID)
	assert.Equal(t, TargetRunning, decoded.Status)
	assert.Equal(t, uint64(7), decoded.OrderID)
}

func TestDecodeTargetSnapshotVersionMismatch(t *testing.T) {
	_, err := DecodeTargetSnapshot(`{"version":99,"id":1}`)
	assert.Error(t, err)

	_, err = DecodeTargetSnapshot("not json")
	assert.Error(t, err)
}

func TestOrderSnapshotRoundtrip(t *testing.T) {
	order := &Order{
		BaseModel: basemodel.BaseModel{ID: 7},
		Client:    5,
		TargetIP:  "scanme.example.com",
		Status:    OrderInProgress,
	}

	snap := NewOrderSnapshot(order, []uint64{41, 42})
	raw, err := snap.Encode()
	require.NoError(t, err)

	decoded, err := DecodeOrderSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), decoded.ID)
	assert.Equal(t, []uint64{41, 42}, decoded.TargetIDs)
	assert.Equal(t, OrderInProgress, decoded.Status)
}

func TestDecodeOrderSnapshotVersionMismatch(t *testing.T) {
	_, err := DecodeOrderSnapshot(`{"version":0,"id":1}`)
	assert.Error(t, err)
}
