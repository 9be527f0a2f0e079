package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanModel "scanmaster/internal/model/scanner"
)

func TestDispatchByIDs(t *testing.T) {
	env := newTestEnv(nil)
	_, targets := env.seedOrder(5, scanModel.TargetCreated, scanModel.TargetCreated)
	caller := Caller{UserID: 5, ClientID: 5}

	result, err := env.svc.DispatchByIDs(context.Background(), caller, []uint64{targets[0].ID, targets[1].ID})
	require.NoError(t, err)
	assert.Len(t, result.Dispatched, 2)
	assert.Empty(t, result.Skipped)

	// 入队即置Queued
	for _, target := range targets {
		stored, _ := env.targets.GetTargetByID(context.Background(), target.ID)
		assert.Equal(t, scanModel.TargetQueued, stored.Status)
	}

	// 批次汇总已刷新
	order, _ := env.orders.GetOrderByID(context.Background(), targets[0].OrderID)
	assert.Equal(t, scanModel.OrderInProgress, order.Status)
}

// 显式ID列表是全有或全无:任一ID不存在时不入队任何任务
func TestDispatchByIDsMissingTarget(t *testing.T) {
	env := newTestEnv(nil)
	_, targets := env.seedOrder(5, scanModel.TargetCreated)
	caller := Caller{UserID: 5, ClientID: 5}

	_, err := env.svc.DispatchByIDs(context.Background(), caller, []uint64{targets[0].ID, 999})
	assert.ErrorIs(t, err, ErrNotFound)

	stored, _ := env.targets.GetTargetByID(context.Background(), targets[0].ID)
	assert.Equal(t, scanModel.TargetCreated, stored.Status, "no partial dispatch on failure")
}

func TestDispatchByIDsTerminalTarget(t *testing.T) {
	env := newTestEnv(nil)
	_, targets := env.seedOrder(5, scanModel.TargetCreated, scanModel.TargetFinished)
	caller := Caller{UserID: 5, ClientID: 5}

	_, err := env.svc.DispatchByIDs(context.Background(), caller, []uint64{targets[0].ID, targets[1].ID})
	assert.ErrorIs(t, err, ErrValidation)

	stored, _ := env.targets.GetTargetByID(context.Background(), targets[0].ID)
	assert.Equal(t, scanModel.TargetCreated, stored.Status)
}

func TestDispatchByIDsForbidden(t *testing.T) {
	env := newTestEnv(nil)
	_, targets := env.seedOrder(5, scanModel.TargetCreated)

	// 他人目标,无越权权限
	_, err := env.svc.DispatchByIDs(context.Background(), Caller{UserID: 9, ClientID: 9}, []uint64{targets[0].ID})
	assert.ErrorIs(t, err, ErrForbidden)

	// staff可以越权派发
	result, err := env.svc.DispatchByIDs(context.Background(), Caller{UserID: 9, ClientID: 9, Privileged: true}, []uint64{targets[0].ID})
	require.NoError(t, err)
	assert.Len(t, result.Dispatched, 1)
}

func TestDispatchByIDsEmptyList(t *testing.T) {
	env := newTestEnv(nil)
	_, err := env.svc.DispatchByIDs(context.Background(), Caller{UserID: 5}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

// 按批次派发允许部分成功:不存在的批次与终态目标跳过并记录原因
func TestDispatchByOrdersPartialSuccess(t *testing.T) {
	env := newTestEnv(nil)
	order, targets := env.seedOrder(5, scanModel.TargetCreated, scanModel.TargetFinished)
	caller := Caller{UserID: 5, ClientID: 5}

	result, err := env.svc.DispatchByOrders(context.Background(), caller, []uint64{order.ID, 888})
	require.NoError(t, err)
	assert.Equal(t, []uint64{targets[0].ID}, result.Dispatched)
	assert.Contains(t, result.Skipped, uint64(888))
	assert.Contains(t, result.Skipped, targets[1].ID)
}

// 所有权校验是整体性的:任一批次越权即整体拒绝
func TestDispatchByOrdersForbidden(t *testing.T) {
	env := newTestEnv(nil)
	mine, _ := env.seedOrder(5, scanModel.TargetCreated)
	other, _ := env.seedOrder(9, scanModel.TargetCreated)

	_, err := env.svc.DispatchByOrders(context.Background(), Caller{UserID: 5, ClientID: 5}, []uint64{mine.ID, other.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDispatchByCount(t *testing.T) {
	env := newTestEnv(nil)
	env.seedOrder(5, scanModel.TargetCreated, scanModel.TargetCreated, scanModel.TargetCreated)
	env.seedOrder(9, scanModel.TargetCreated)

	// 非特权调用方只取自己的目标
	result, err := env.svc.DispatchByCount(context.Background(), Caller{UserID: 5, ClientID: 5}, 2)
	require.NoError(t, err)
	assert.Len(t, result.Dispatched, 2)

	// 特权调用方不限用户
	result, err = env.svc.DispatchByCount(context.Background(), Caller{UserID: 1, ClientID: 1, Privileged: true}, 10)
	require.NoError(t, err)
	assert.Len(t, result.Dispatched, 2, "one own target left plus the other client's target")

	_, err = env.svc.DispatchByCount(context.Background(), Caller{UserID: 5}, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

// 任务队列满时派发失败且不阻塞
func TestDispatchQueueFull(t *testing.T) {
	env := newTestEnv(nil)
	env.svc.pool = newWorkerPool(env.svc, 1, 1)
	_, targets := env.seedOrder(5, scanModel.TargetCreated, scanModel.TargetCreated)

	_, err := env.svc.DispatchByIDs(context.Background(), Caller{UserID: 5, ClientID: 5}, []uint64{targets[0].ID, targets[1].ID})
	assert.ErrorIs(t, err, ErrQueueFull)
}
