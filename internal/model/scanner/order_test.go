package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollupStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []TargetStatus
		want     OrderStatus
	}{
		{"empty", nil, OrderCreated},
		{"all finished", []TargetStatus{TargetFinished, TargetFinished}, OrderFinished},
		{"all terminal with failure", []TargetStatus{TargetFinished, TargetTerminated}, OrderFailed},
		{"all terminated", []TargetStatus{TargetTerminated, TargetTerminated}, OrderFailed},
		{"still running", []TargetStatus{TargetFinished, TargetRunning}, OrderInProgress},
		{"queued only", []TargetStatus{TargetQueued}, OrderInProgress},
		{"created only", []TargetStatus{TargetCreated, TargetCreated}, OrderInProgress},
		{"single finished", []TargetStatus{TargetFinished}, OrderFinished},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, RollupStatus(c.statuses))
		})
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.False(t, OrderCreated.IsTerminal())
	assert.False(t, OrderInProgress.IsTerminal())
	assert.True(t, OrderFailed.IsTerminal())
	assert.True(t, OrderFinished.IsTerminal())
}

func TestTargetStatusTransitions(t *testing.T) {
	assert.True(t, TargetCreated.CanAdvanceTo(TargetQueued))
	assert.True(t, TargetQueued.CanAdvanceTo(TargetRunning))
	assert.True(t, TargetRunning.CanAdvanceTo(TargetFinished))
	// 状态不允许回退
	assert.False(t, TargetRunning.CanAdvanceTo(TargetQueued))
	assert.False(t, TargetFinished.CanAdvanceTo(TargetCreated))

	assert.True(t, TargetTerminated.IsTerminal())
	assert.True(t, TargetFinished.IsTerminal())
	assert.False(t, TargetRunning.IsTerminal())
}
