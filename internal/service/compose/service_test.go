package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanmaster/internal/model/basemodel"
	scanModel "scanmaster/internal/model/scanner"
	scanRepo "scanmaster/internal/repo/mysql/scanner"
)

// stubTargetRepo 只实现解析流水线用到的方法,其余方法走内嵌接口panic
type stubTargetRepo struct {
	scanRepo.TargetRepository
	targets map[uint64]*scanModel.Target
}

func (r *stubTargetRepo) GetTargetByID(ctx context.Context, id uint64) (*scanModel.Target, error) {
	t, ok := r.targets[id]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (r *stubTargetRepo) SaveComposeResult(ctx context.Context, id uint64, composeResult string) error {
	if t, ok := r.targets[id]; ok {
		t.ComposeResult = composeResult
	}
	return nil
}

type stubToolRepo struct {
	scanRepo.ToolRepository
	tools map[uint64]*scanModel.Tool
}

func (r *stubToolRepo) GetToolByID(ctx context.Context, id uint64) (*scanModel.Tool, error) {
	tool, ok := r.tools[id]
	if !ok {
		return nil, nil
	}
	return tool, nil
}

func newComposeEnv(target *scanModel.Target, tool *scanModel.Tool) (*ComposeService, *stubTargetRepo) {
	targetRepo := &stubTargetRepo{targets: map[uint64]*scanModel.Target{target.ID: target}}
	toolRepo := &stubToolRepo{tools: map[uint64]*scanModel.Tool{tool.ID: tool}}
	svc := NewComposeService(targetRepo, toolRepo, &fakeCveClient{}, 2)
	return svc, targetRepo
}

func TestComposeTargetDefaultHandler(t *testing.T) {
	target := &scanModel.Target{
		BaseModel: basemodel.BaseModel{ID: 1},
		Host:      "10.0.0.8",
		ToolID:    7,
		RawResult: "some raw tool output",
	}
	tool := &scanModel.Tool{BaseModel: basemodel.BaseModel{ID: 7}, Name: "dirb", ToolCmd: "dirb"}
	svc, repo := newComposeEnv(target, tool)

	result, err := svc.ComposeTarget(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.NotNil(t, result["Dirb"])
	assert.Equal(t, []string{"some raw tool output"}, result["Dirb"].Evidence)

	// 结果已写回目标行
	assert.NotEmpty(t, repo.targets[1].ComposeResult)
}

// regenerate=false且已有解析缓存时直接返回缓存
func TestComposeTargetMemoization(t *testing.T) {
	cached := make(scanModel.AlertMap)
	cached.Add(&scanModel.Alert{Title: "Cached Finding", Instances: 5})
	encoded, err := cached.Encode()
	require.NoError(t, err)

	target := &scanModel.Target{
		BaseModel:     basemodel.BaseModel{ID: 1},
		ToolID:        7,
		RawResult:     "fresh output that would produce a different alert",
		ComposeResult: encoded,
	}
	tool := &scanModel.Tool{BaseModel: basemodel.BaseModel{ID: 7}, Name: "dirb", ToolCmd: "dirb"}
	svc, _ := newComposeEnv(target, tool)

	result, err := svc.ComposeTarget(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 5, result["Cached Finding"].Instances)

	// regenerate=true时强制重算
	result, err = svc.ComposeTarget(context.Background(), 1, true)
	require.NoError(t, err)
	assert.NotNil(t, result["Dirb"])
	assert.Nil(t, result["Cached Finding"])
}

// 缓存损坏时重算而不是报错
func TestComposeTargetCorruptCache(t *testing.T) {
	target := &scanModel.Target{
		BaseModel:     basemodel.BaseModel{ID: 1},
		ToolID:        7,
		RawResult:     "raw output",
		ComposeResult: "{corrupt json",
	}
	tool := &scanModel.Tool{BaseModel: basemodel.BaseModel{ID: 7}, Name: "dirb", ToolCmd: "dirb"}
	svc, _ := newComposeEnv(target, tool)

	result, err := svc.ComposeTarget(context.Background(), 1, false)
	require.NoError(t, err)
	assert.NotNil(t, result["Dirb"])
}

func TestComposeTargetMissingEntities(t *testing.T) {
	target := &scanModel.Target{BaseModel: basemodel.BaseModel{ID: 1}, ToolID: 99}
	tool := &scanModel.Tool{BaseModel: basemodel.BaseModel{ID: 7}, Name: "dirb", ToolCmd: "dirb"}
	svc, _ := newComposeEnv(target, tool)

	_, err := svc.ComposeTarget(context.Background(), 404, false)
	assert.Error(t, err, "target not found")

	_, err = svc.ComposeTarget(context.Background(), 1, false)
	assert.Error(t, err, "tool not found")
}

// 批量解析:单个目标失败跳过,兄弟目标的告警照常合并
func TestComposeTargets(t *testing.T) {
	targetRepo := &stubTargetRepo{targets: map[uint64]*scanModel.Target{
		1: {BaseModel: basemodel.BaseModel{ID: 1}, ToolID: 7, RawResult: "output one"},
		2: {BaseModel: basemodel.BaseModel{ID: 2}, ToolID: 7, RawResult: "output two"},
	}}
	toolRepo := &stubToolRepo{tools: map[uint64]*scanModel.Tool{
		7: {BaseModel: basemodel.BaseModel{ID: 7}, Name: "dirb", ToolCmd: "dirb"},
	}}
	svc := NewComposeService(targetRepo, toolRepo, &fakeCveClient{}, 2)

	result, err := svc.ComposeTargets(context.Background(), []uint64{1, 404, 2}, false)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// 同标题告警跨目标合并
	alert := result["Dirb"]
	require.NotNil(t, alert)
	assert.Equal(t, 2, alert.Instances)
	assert.Equal(t, []string{"output one", "output two"}, alert.Evidence)
}

// 单个探测函数panic只丢弃自己的部分结果
func TestRunDetectorsPanicIsolation(t *testing.T) {
	svc := NewComposeService(
		&stubTargetRepo{targets: map[uint64]*scanModel.Target{}},
		&stubToolRepo{tools: map[uint64]*scanModel.Tool{}},
		&fakeCveClient{}, 2)

	handler := &Handler{
		Name: "test",
		Detectors: []Detector{
			func(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
				panic("detector blew up")
			},
			func(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
				m := make(scanModel.AlertMap)
				m.Add(&scanModel.Alert{Title: "Survivor", Instances: 1})
				return m, nil
			},
		},
	}

	in := detectorInput("test", "raw")
	result := svc.runDetectors(context.Background(), handler, in)
	require.Len(t, result, 1)
	assert.NotNil(t, result["Survivor"])
}
