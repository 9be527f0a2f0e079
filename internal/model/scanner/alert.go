package scanner

import (
	"encoding/json"
	"sort"
	"strings"
)

// AlertTemplateGenerator 告警的渲染模板类别
// 决定报告层如何展示该告警的字段
type AlertTemplateGenerator int

const (
	GeneratorCve  AlertTemplateGenerator = iota // CVE富化告警，展示CVSS评分与参考链接
	GeneratorInfo                               // 纯信息类告警，无CVE数据
	GeneratorZap                                // ZAP原生告警，自带solution/cwe字段
)

// String 类别的可读名称
func (g AlertTemplateGenerator) String() string {
	switch g {
	case GeneratorCve:
		return "cve"
	case GeneratorInfo:
		return "info"
	case GeneratorZap:
		return "zap"
	default:
		return "unknown"
	}
}

// 规范化严重级别key与排序权重
// 数值越小越严重，报告按此升序排列
const (
	SeverityCritical      = "critical"
	SeverityHigh          = "high"
	SeverityMedium        = "medium"
	SeverityLow           = "low"
	SeverityInfo          = "info"
	SeverityFalsePositive = "false-positive"
)

// severityOrder 规范化key到排序权重的映射
var severityOrder = map[string]int{
	SeverityCritical:      0,
	SeverityHigh:          1,
	SeverityMedium:        2,
	SeverityLow:           3,
	SeverityInfo:          4,
	SeverityFalsePositive: 5,
}

// severityLabel 规范化key到展示名称的映射
var severityLabel = map[string]string{
	SeverityCritical:      "Critical",
	SeverityHigh:          "High",
	SeverityMedium:        "Medium",
	SeverityLow:           "Low",
	SeverityInfo:          "Informational",
	SeverityFalsePositive: "False Positive",
}

// NormalizeSeverity 将各工具的原生严重级别词汇映射为规范化key
// 未识别的词汇归入info
func NormalizeSeverity(native string) string {
	switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(native), ":"))) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "informational", "info", "information":
		return SeverityInfo
	case "false positive", "false positives", "false-positive":
		return SeverityFalsePositive
	default:
		return SeverityInfo
	}
}

// SeverityRank 返回规范化key的排序权重，未知key按info处理
func SeverityRank(key string) int {
	if rank, ok := severityOrder[key]; ok {
		return rank
	}
	return severityOrder[SeverityInfo]
}

// SeverityDisplay 返回规范化key的展示名称
func SeverityDisplay(key string) string {
	if label, ok := severityLabel[key]; ok {
		return label
	}
	return severityLabel[SeverityInfo]
}

// Alert 规范化告警记录
// 以Title为稳定键；同一Title重复检出时按Merge规则合并而不是覆盖
type Alert struct {
	Title       string                 `json:"title"`        // 告警标题(map键)
	Complexity  string                 `json:"complexity"`   // 规范化严重级别key
	AlertOrder  int                    `json:"alert_order"`  // 排序权重(由severity推导)
	AlertRef    string                 `json:"alert_ref"`    // 报告内交叉引用的唯一ID
	Instances   int                    `json:"instances"`    // 同标题检出次数
	Evidence    []string               `json:"evidence"`     // 去重后的证据文本
	URLs        []string               `json:"urls"`         // 关联URL集合
	CWEIDs      []string               `json:"cwe_ids"`      // CWE编号集合
	Tool        string                 `json:"tool"`         // 产出该告警的工具名
	Description string                 `json:"description"`  // 描述
	Solution    string                 `json:"solution"`     // 修复建议
	CVSS3Score  string                 `json:"cvss3_score"`  // CVSS v3分数("N/A"表示缺失)
	CVSS2Score  string                 `json:"cvss2_score"`  // CVSS v2分数
	References  []string               `json:"references"`   // 参考链接
	AlertJSON   map[string]interface{} `json:"alert_json"`   // 工具特定的原始载荷
	Generator   AlertTemplateGenerator `json:"generator"`    // 渲染模板类别
}

// Merge 将另一条同标题告警合并进当前告警
// instances累加，evidence/urls/references做集合并集，其余字段保留先到者
func (a *Alert) Merge(other *Alert) {
	if other == nil {
		return
	}
	a.Instances += other.Instances
	a.Evidence = unionStrings(a.Evidence, other.Evidence)
	a.URLs = unionStrings(a.URLs, other.URLs)
	a.References = unionStrings(a.References, other.References)
	a.CWEIDs = unionStrings(a.CWEIDs, other.CWEIDs)
}

// unionStrings 保序去重合并两个字符串切片
func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// AlertMap 以标题为键的告警集合，即Target.ComposeResult的内存形态
type AlertMap map[string]*Alert

// Add 向集合加入一条告警，同标题按Merge规则合并
func (m AlertMap) Add(alert *Alert) {
	if alert == nil || alert.Title == "" {
		return
	}
	if existing, ok := m[alert.Title]; ok {
		existing.Merge(alert)
		return
	}
	m[alert.Title] = alert
}

// MergeFrom 合并另一个告警集合 [探测函数fan-in用]
func (m AlertMap) MergeFrom(partial AlertMap) {
	// 按标题排序遍历，保证合并顺序确定
	titles := make([]string, 0, len(partial))
	for title := range partial {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		m.Add(partial[title])
	}
}

// SortedAlerts 按alert_order升序(更严重在前)返回告警列表，同权重按标题排序
func (m AlertMap) SortedAlerts() []*Alert {
	alerts := make([]*Alert, 0, len(m))
	for _, a := range m {
		alerts = append(alerts, a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].AlertOrder != alerts[j].AlertOrder {
			return alerts[i].AlertOrder < alerts[j].AlertOrder
		}
		return alerts[i].Title < alerts[j].Title
	})
	return alerts
}

// Encode 序列化为JSON字符串，用于写入Target.ComposeResult
func (m AlertMap) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeAlertMap 从Target.ComposeResult反序列化告警集合
func DecodeAlertMap(raw string) (AlertMap, error) {
	m := make(AlertMap)
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
