package scanner

import (
	"context"
	"sort"
	"time"

	"scanmaster/internal/config"
	"scanmaster/internal/model/basemodel"
	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/repo/cache"
	"scanmaster/internal/repo/memory"
)

// fakeTargetRepo 内存目标仓库
type fakeTargetRepo struct {
	targets map[uint64]*scanModel.Target
	nextID  uint64
}

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{targets: make(map[uint64]*scanModel.Target), nextID: 1}
}

func (r *fakeTargetRepo) put(t *scanModel.Target) *scanModel.Target {
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	} else if t.ID >= r.nextID {
		r.nextID = t.ID + 1
	}
	r.targets[t.ID] = t
	return t
}

func (r *fakeTargetRepo) CreateTarget(ctx context.Context, target *scanModel.Target) error {
	r.put(target)
	return nil
}

func (r *fakeTargetRepo) CreateTargets(ctx context.Context, targets []*scanModel.Target) error {
	for _, t := range targets {
		r.put(t)
	}
	return nil
}

func (r *fakeTargetRepo) GetTargetByID(ctx context.Context, id uint64) (*scanModel.Target, error) {
	t, ok := r.targets[id]
	if !ok || t.Deleted {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTargetRepo) GetTargetsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Target, error) {
	var out []*scanModel.Target
	for _, id := range ids {
		if t, ok := r.targets[id]; ok && !t.Deleted {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) GetTargetsByOrderID(ctx context.Context, orderID uint64) ([]*scanModel.Target, error) {
	var out []*scanModel.Target
	for _, t := range r.targets {
		if t.OrderID == orderID && !t.Deleted {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTargetRepo) GetPendingTargets(ctx context.Context, scanBy uint64, limit int) ([]*scanModel.Target, error) {
	ids := make([]uint64, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*scanModel.Target
	for _, id := range ids {
		t := r.targets[id]
		if t.Deleted || t.Status != scanModel.TargetCreated {
			continue
		}
		if scanBy != 0 && t.ScanBy != scanBy {
			continue
		}
		clone := *t
		out = append(out, &clone)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) UpdateTargetStatus(ctx context.Context, id uint64, status scanModel.TargetStatus) error {
	if t, ok := r.targets[id]; ok {
		t.Status = status
	}
	return nil
}

func (r *fakeTargetRepo) SaveScanResult(ctx context.Context, id uint64, rawResult string, status scanModel.TargetStatus, scanTime int) error {
	if t, ok := r.targets[id]; ok {
		t.RawResult = rawResult
		t.Status = status
		t.ScanTime = scanTime
	}
	return nil
}

func (r *fakeTargetRepo) SaveComposeResult(ctx context.Context, id uint64, composeResult string) error {
	if t, ok := r.targets[id]; ok {
		t.ComposeResult = composeResult
	}
	return nil
}

func (r *fakeTargetRepo) UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error {
	if t, ok := r.targets[id]; ok {
		t.PDFPath = pdfPath
	}
	return nil
}

func (r *fakeTargetRepo) IncrementRetry(ctx context.Context, id uint64) error {
	if t, ok := r.targets[id]; ok {
		t.Retry++
	}
	return nil
}

func (r *fakeTargetRepo) ResetTarget(ctx context.Context, id uint64) error {
	if t, ok := r.targets[id]; ok {
		t.Status = scanModel.TargetCreated
		t.RawResult = ""
		t.ComposeResult = ""
		t.ScanTime = 0
	}
	return nil
}

func (r *fakeTargetRepo) SoftDeleteTarget(ctx context.Context, id uint64) error {
	if t, ok := r.targets[id]; ok {
		t.Deleted = true
	}
	return nil
}

func (r *fakeTargetRepo) SoftDeleteByOrderID(ctx context.Context, orderID uint64) error {
	for _, t := range r.targets {
		if t.OrderID == orderID {
			t.Deleted = true
		}
	}
	return nil
}

// fakeOrderRepo 内存批次仓库
type fakeOrderRepo struct {
	orders map[uint64]*scanModel.Order
	nextID uint64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uint64]*scanModel.Order), nextID: 1}
}

func (r *fakeOrderRepo) put(o *scanModel.Order) *scanModel.Order {
	if o.ID == 0 {
		o.ID = r.nextID
		r.nextID++
	} else if o.ID >= r.nextID {
		r.nextID = o.ID + 1
	}
	r.orders[o.ID] = o
	return o
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, order *scanModel.Order) error {
	r.put(order)
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, id uint64) (*scanModel.Order, error) {
	o, ok := r.orders[id]
	if !ok || o.Deleted {
		return nil, nil
	}
	clone := *o
	return &clone, nil
}

func (r *fakeOrderRepo) GetOrdersByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Order, error) {
	var out []*scanModel.Order
	for _, id := range ids {
		if o, ok := r.orders[id]; ok && !o.Deleted {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) GetOrdersByClient(ctx context.Context, client uint64, limit int) ([]*scanModel.Order, error) {
	var out []*scanModel.Order
	for _, o := range r.orders {
		if o.Client == client && !o.Deleted {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, id uint64, status scanModel.OrderStatus) error {
	if o, ok := r.orders[id]; ok {
		o.Status = status
	}
	return nil
}

func (r *fakeOrderRepo) UpdatePDFPath(ctx context.Context, id uint64, pdfPath string) error {
	if o, ok := r.orders[id]; ok {
		o.PDFPath = pdfPath
	}
	return nil
}

func (r *fakeOrderRepo) SoftDeleteOrder(ctx context.Context, id uint64) error {
	if o, ok := r.orders[id]; ok {
		o.Deleted = true
	}
	return nil
}

// fakeToolRepo 内存工具仓库
type fakeToolRepo struct {
	tools map[uint64]*scanModel.Tool
}

func newFakeToolRepo(tools ...*scanModel.Tool) *fakeToolRepo {
	r := &fakeToolRepo{tools: make(map[uint64]*scanModel.Tool)}
	for _, tool := range tools {
		r.tools[tool.ID] = tool
	}
	return r
}

func (r *fakeToolRepo) CreateTool(ctx context.Context, tool *scanModel.Tool) error {
	r.tools[tool.ID] = tool
	return nil
}

func (r *fakeToolRepo) GetToolByID(ctx context.Context, id uint64) (*scanModel.Tool, error) {
	tool, ok := r.tools[id]
	if !ok || tool.Deleted {
		return nil, nil
	}
	return tool, nil
}

func (r *fakeToolRepo) GetToolsByIDs(ctx context.Context, ids []uint64) ([]*scanModel.Tool, error) {
	var out []*scanModel.Tool
	for _, id := range ids {
		if tool, ok := r.tools[id]; ok && !tool.Deleted {
			out = append(out, tool)
		}
	}
	return out, nil
}

func (r *fakeToolRepo) GetToolByCmd(ctx context.Context, toolCmd string) (*scanModel.Tool, error) {
	for _, tool := range r.tools {
		if tool.ToolCmd == toolCmd && !tool.Deleted {
			return tool, nil
		}
	}
	return nil, nil
}

func (r *fakeToolRepo) ListActiveTools(ctx context.Context, maxTier int) ([]*scanModel.Tool, error) {
	ids := make([]uint64, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*scanModel.Tool
	for _, id := range ids {
		tool := r.tools[id]
		if tool.Deleted {
			continue
		}
		if maxTier >= 0 && tool.Tier > maxTier {
			continue
		}
		out = append(out, tool)
	}
	return out, nil
}

func (r *fakeToolRepo) SoftDeleteTool(ctx context.Context, id uint64) error {
	if tool, ok := r.tools[id]; ok {
		tool.Deleted = true
	}
	return nil
}

// fakeRunner 固定输出的命令执行器
type fakeRunner struct {
	stdout string
	stderr string
	err    error
}

func (r *fakeRunner) Run(ctx context.Context, command string) (string, string, error) {
	return r.stdout, r.stderr, r.err
}

// testEnv 扫描服务测试环境
type testEnv struct {
	targets *fakeTargetRepo
	orders  *fakeOrderRepo
	tools   *fakeToolRepo
	cache   *cache.ProgressCache
	svc     *ScanService
}

func newTestEnv(runner CommandRunner, tools ...*scanModel.Tool) *testEnv {
	if len(tools) == 0 {
		tools = []*scanModel.Tool{{
			BaseModel: basemodel.BaseModel{ID: 1},
			Name:      "nmap",
			ToolCmd:   "nmap",
			Cmd:       "nmap -sV <ip>",
			TimeLimit: 60,
		}}
	}
	env := &testEnv{
		targets: newFakeTargetRepo(),
		orders:  newFakeOrderRepo(),
		tools:   newFakeToolRepo(tools...),
		cache:   cache.NewProgressCache(memory.NewKVStore(), 1, time.Millisecond),
	}
	if runner == nil {
		runner = &fakeRunner{stdout: "PORT STATE SERVICE"}
	}
	env.svc = NewScanService(env.targets, env.orders, env.tools, env.cache, runner, &config.ScanConfig{
		Workers:   1,
		QueueSize: 16,
	})
	return env
}

// seedOrder 预置一个批次和若干目标
func (e *testEnv) seedOrder(client uint64, statuses ...scanModel.TargetStatus) (*scanModel.Order, []*scanModel.Target) {
	order := e.orders.put(&scanModel.Order{
		Client:   client,
		TargetIP: "10.0.0.8",
		Status:   scanModel.OrderCreated,
	})
	targets := make([]*scanModel.Target, 0, len(statuses))
	for _, status := range statuses {
		targets = append(targets, e.targets.put(&scanModel.Target{
			Host:    "10.0.0.8",
			Status:  status,
			ToolID:  1,
			OrderID: order.ID,
			ScanBy:  client,
		}))
	}
	return order, targets
}
