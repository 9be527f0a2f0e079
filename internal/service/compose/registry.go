/**
 * 解析流水线:处理器注册表
 * @author: sun977
 * @date: 2025.11.23
 * @description: 按工具命令标识精确路由到对应的解析处理器,未注册命令落到默认处理器
 * @note: 同一工具族的不同命令(如nmap与nmap-vulners)各自注册,不做前缀匹配
 */
package compose

import (
	"context"

	scanModel "scanmaster/internal/model/scanner"
)

// Input 探测函数的输入
type Input struct {
	Target *scanModel.Target
	Tool   *scanModel.Tool
	Raw    string // Target.RawResult的别名,探测函数只读
}

// Detector 单个漏洞探测函数
// 返回自己的部分告警集合,由流水线fan-in合并;返回nil表示无检出
type Detector func(ctx context.Context, in *Input) (scanModel.AlertMap, error)

// Handler 某个工具命令的解析处理器,由若干探测函数组成
type Handler struct {
	Name      string
	Detectors []Detector
}

// Registry 工具命令到处理器的路由表
type Registry struct {
	handlers map[string]*Handler
	fallback *Handler
}

// NewRegistry 创建空注册表,fallback为未注册命令的兜底处理器
func NewRegistry(fallback *Handler) *Registry {
	return &Registry{
		handlers: make(map[string]*Handler),
		fallback: fallback,
	}
}

// Register 注册处理器,一个处理器可以服务多个工具命令
func (r *Registry) Register(handler *Handler, toolCmds ...string) {
	for _, cmd := range toolCmds {
		r.handlers[cmd] = handler
	}
}

// Lookup 按工具命令精确查找处理器,未注册时返回fallback
func (r *Registry) Lookup(toolCmd string) *Handler {
	if handler, ok := r.handlers[toolCmd]; ok {
		return handler
	}
	return r.fallback
}

// buildRegistry 装配全部内置处理器
func buildRegistry(b *alertBuilder) *Registry {
	nmap := &Handler{Name: "nmap", Detectors: []Detector{b.nmapPortDetector}}
	registry := NewRegistry(&Handler{Name: "default", Detectors: []Detector{defaultDetector}})

	registry.Register(nmap, "nmap", "nmap_poodle", "nmap_vuln", "nmap_vulners")
	registry.Register(&Handler{
		Name: "curl",
		Detectors: []Detector{
			b.contentTypeOptionsDetector,
			b.unsupportedWebServerDetector,
		},
	}, "curl -I")
	registry.Register(&Handler{Name: "sslyze", Detectors: []Detector{sslyzeDetector}}, "sslyze")
	registry.Register(&Handler{Name: "nikto", Detectors: []Detector{b.clickjackingDetector}}, "nikto")
	registry.Register(&Handler{Name: "openvas", Detectors: []Detector{b.openvasDetector}}, "openvas")
	registry.Register(&Handler{Name: "owasp_zap", Detectors: []Detector{b.zapDetector}},
		"owasp_zap", "active_owasp", "isaix_owasp")

	return registry
}
