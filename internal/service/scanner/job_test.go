package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanModel "scanmaster/internal/model/scanner"
)

func TestDecideOutcome(t *testing.T) {
	deadline := 90 * time.Second

	status, raw := decideOutcome("PORT STATE SERVICE", "", nil, deadline)
	assert.Equal(t, scanModel.TargetFinished, status)
	assert.Equal(t, "PORT STATE SERVICE", raw)

	// stdout与stderr并存时以stdout为准
	status, raw = decideOutcome("output", "warning: deprecated flag", nil, deadline)
	assert.Equal(t, scanModel.TargetFinished, status)
	assert.Equal(t, "output", raw)

	// 只有stderr没有stdout记为Terminated
	status, raw = decideOutcome("", "command not found", nil, deadline)
	assert.Equal(t, scanModel.TargetTerminated, status)
	assert.Equal(t, "command not found", raw)

	// 超时保留诊断文本
	status, raw = decideOutcome("partial", "killed", context.DeadlineExceeded, deadline)
	assert.Equal(t, scanModel.TargetTerminated, status)
	assert.Contains(t, raw, "exceeded time limit")
	assert.Contains(t, raw, "killed")

	// 进程报错
	status, raw = decideOutcome("", "", errors.New("exit status 127"), deadline)
	assert.Equal(t, scanModel.TargetTerminated, status)
	assert.Contains(t, raw, "exit status 127")

	// 空输出空错误仍算Finished [工具无输出是合法结果]
	status, raw = decideOutcome("", "", nil, deadline)
	assert.Equal(t, scanModel.TargetFinished, status)
	assert.Equal(t, "", raw)
}

func TestRunJobFinished(t *testing.T) {
	env := newTestEnv(&fakeRunner{stdout: "443/tcp open https"})
	order, targets := env.seedOrder(5, scanModel.TargetQueued)
	ctx := context.Background()

	env.svc.runJob(ctx, Job{
		TargetID: targets[0].ID,
		OrderID:  order.ID,
		ToolID:   1,
		Deadline: time.Minute,
	})

	stored, _ := env.targets.GetTargetByID(ctx, targets[0].ID)
	assert.Equal(t, scanModel.TargetFinished, stored.Status)
	assert.Equal(t, "443/tcp open https", stored.RawResult)

	// 批次汇总已到终态,缓存树被清理
	storedOrder, _ := env.orders.GetOrderByID(ctx, order.ID)
	assert.Equal(t, scanModel.OrderFinished, storedOrder.Status)
	exists, _ := env.cache.HasOrder(ctx, order.ID)
	assert.False(t, exists)
}

func TestRunJobTimeout(t *testing.T) {
	env := newTestEnv(&fakeRunner{stderr: "killed", err: context.DeadlineExceeded})
	order, targets := env.seedOrder(5, scanModel.TargetQueued)
	ctx := context.Background()

	env.svc.runJob(ctx, Job{
		TargetID: targets[0].ID,
		OrderID:  order.ID,
		ToolID:   1,
		Deadline: time.Second,
	})

	stored, _ := env.targets.GetTargetByID(ctx, targets[0].ID)
	assert.Equal(t, scanModel.TargetTerminated, stored.Status)
	assert.Contains(t, stored.RawResult, "exceeded time limit")

	storedOrder, _ := env.orders.GetOrderByID(ctx, order.ID)
	assert.Equal(t, scanModel.OrderFailed, storedOrder.Status)
}

// 终态目标不允许重复执行
func TestRunJobSkipsTerminalTarget(t *testing.T) {
	env := newTestEnv(&fakeRunner{stdout: "should not run"})
	order, targets := env.seedOrder(5, scanModel.TargetFinished)
	env.targets.targets[targets[0].ID].RawResult = "original"
	ctx := context.Background()

	env.svc.runJob(ctx, Job{TargetID: targets[0].ID, OrderID: order.ID, ToolID: 1, Deadline: time.Minute})

	stored, _ := env.targets.GetTargetByID(ctx, targets[0].ID)
	assert.Equal(t, "original", stored.RawResult)
}

func TestBuildCommandSudo(t *testing.T) {
	env := newTestEnv(nil)
	tool := &scanModel.Tool{Cmd: "masscan <ip> -p1-65535", Sudo: true}

	// 未配置sudo密码时不注入前缀
	assert.Equal(t, "masscan 10.0.0.8 -p1-65535", env.svc.buildCommand(tool, "10.0.0.8"))

	env.svc.cfg.SudoPassword = "secret"
	assert.Equal(t, "echo 'secret' | sudo -S masscan 10.0.0.8 -p1-65535", env.svc.buildCommand(tool, "10.0.0.8"))
}

func TestRecomputeOrderRollup(t *testing.T) {
	env := newTestEnv(nil)
	order, targets := env.seedOrder(5, scanModel.TargetRunning, scanModel.TargetFinished)
	ctx := context.Background()

	// 预置缓存快照
	require.NoError(t, env.cache.SetOrder(ctx, scanModel.NewOrderSnapshot(order, []uint64{targets[0].ID, targets[1].ID})))

	rollup, err := env.svc.RecomputeOrderRollup(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, scanModel.OrderInProgress, rollup)

	// 非终态时缓存快照被刷新而不是删除
	snap, err := env.cache.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, scanModel.OrderInProgress, snap.Status)

	// 全部终态后汇总到终态并清理缓存
	env.targets.targets[targets[0].ID].Status = scanModel.TargetTerminated
	rollup, err = env.svc.RecomputeOrderRollup(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, scanModel.OrderFailed, rollup)

	exists, _ := env.cache.HasOrder(ctx, order.ID)
	assert.False(t, exists)
}
