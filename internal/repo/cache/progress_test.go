package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanmaster/internal/model/basemodel"
	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/repo/cache"
	"scanmaster/internal/repo/memory"
)

func newCache() *cache.ProgressCache {
	return cache.NewProgressCache(memory.NewKVStore(), 2, time.Millisecond)
}

func targetSnap(id, orderID uint64, status scanModel.TargetStatus) *scanModel.TargetSnapshot {
	return scanModel.NewTargetSnapshot(&scanModel.Target{
		BaseModel: basemodel.BaseModel{ID: id},
		Host:      "10.0.0.8",
		Status:    status,
		OrderID:   orderID,
	}, 60)
}

func TestProgressCacheTargetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	require.NoError(t, c.SetTarget(ctx, targetSnap(1, 10, scanModel.TargetQueued)))

	snap, err := c.GetTarget(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, scanModel.TargetQueued, snap.Status)

	// 键不存在返回nil,nil
	missing, err := c.GetTarget(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProgressCacheUpdateTarget(t *testing.T) {
	ctx := context.Background()
	c := newCache()
	require.NoError(t, c.SetTarget(ctx, targetSnap(1, 10, scanModel.TargetQueued)))

	err := c.UpdateTarget(ctx, 1, func(snap *scanModel.TargetSnapshot) {
		snap.Status = scanModel.TargetRunning
	})
	require.NoError(t, err)

	snap, err := c.GetTarget(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, scanModel.TargetRunning, snap.Status)
}

// update等待的键始终不出现时,重试耗尽后返回ErrKeyNotFound
func TestProgressCacheUpdateMiss(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	err := c.UpdateTarget(ctx, 404, func(snap *scanModel.TargetSnapshot) {
		t.Fatal("mutate should never run on a missing key")
	})
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}

// 损坏的快照按缺失处理,读取方回退到数据库
func TestProgressCacheCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	c := cache.NewProgressCache(kv, 1, time.Millisecond)

	require.NoError(t, kv.Set(ctx, cache.TargetKey(1), "{corrupt"))
	snap, err := c.GetTarget(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, snap)

	require.NoError(t, kv.Set(ctx, cache.OrderKey(2), `{"version":99}`))
	orderSnap, err := c.GetOrder(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, orderSnap)
}

func TestProgressCacheGetOrderTargets(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	order := scanModel.NewOrderSnapshot(&scanModel.Order{
		BaseModel: basemodel.BaseModel{ID: 10},
		Client:    5,
		Status:    scanModel.OrderInProgress,
	}, []uint64{1, 2, 3})
	require.NoError(t, c.SetOrder(ctx, order))
	require.NoError(t, c.SetTarget(ctx, targetSnap(1, 10, scanModel.TargetRunning)))
	require.NoError(t, c.SetTarget(ctx, targetSnap(2, 10, scanModel.TargetFinished)))
	// 目标3的快照缺失,应当被跳过

	gotOrder, targets, err := c.GetOrderTargets(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, gotOrder)
	assert.Len(t, targets, 2)

	// 批次键缺失时返回nil快照且无错误
	gone, _, err := c.GetOrderTargets(ctx, 77)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestProgressCacheDeleteOrderTree(t *testing.T) {
	ctx := context.Background()
	c := newCache()

	order := scanModel.NewOrderSnapshot(&scanModel.Order{
		BaseModel: basemodel.BaseModel{ID: 10},
	}, []uint64{1, 2})
	require.NoError(t, c.SetOrder(ctx, order))
	require.NoError(t, c.SetTarget(ctx, targetSnap(1, 10, scanModel.TargetFinished)))
	require.NoError(t, c.SetTarget(ctx, targetSnap(2, 10, scanModel.TargetFinished)))

	require.NoError(t, c.DeleteOrderTree(ctx, 10))

	exists, err := c.HasOrder(ctx, 10)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = c.HasTarget(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	// 清理是幂等的
	assert.NoError(t, c.DeleteOrderTree(ctx, 10))
}

func TestTargetRecordsFilterIntegration(t *testing.T) {
	snaps := []*scanModel.TargetSnapshot{
		targetSnap(1, 10, scanModel.TargetRunning),
		targetSnap(2, 10, scanModel.TargetFinished),
		targetSnap(3, 10, scanModel.TargetFinished),
	}

	recs := cache.TargetRecords(snaps)
	require.Len(t, recs, 3)

	matched, err := cache.ApplyFilter(recs, []cache.FilterCondition{
		{Field: "status", Op: cache.OpEq, Value: int(scanModel.TargetFinished)},
	})
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}
