/**
 * 解析流水线:告警构造器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 按告警类别(CVE编号/关键词/手工载荷/纯信息/ZAP批量)构造规范化告警
 * @func: alertResponse 是所有探测函数产出告警的唯一入口
 */
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	scanModel "scanmaster/internal/model/scanner"
	"scanmaster/internal/pkg/cvedb"
)

// AlertType 告警构造类别
// 决定alertResponse如何富化字段
type AlertType int

const (
	AlertTypeCveByID      AlertType = iota + 1 // 按CVE编号查漏洞库富化
	AlertTypeCveByKeyword                      // 按关键词查漏洞库取最佳匹配
	AlertTypeManual                            // 调用方提供完整载荷
	AlertTypeInfoOnly                          // 纯信息告警,不查库
	AlertTypeZapBulk                           // ZAP原生告警批量导入
)

// AlertRequest alertResponse的输入载荷
// 不同AlertType读取不同字段子集
type AlertRequest struct {
	Type        AlertType
	Title       string   // 告警标题(map键)
	CVEID       string   // Type=CveByID时的查询编号
	Keyword     string   // Type=CveByKeyword时的查询词
	Complexity  string   // 工具原生严重级别词汇
	Description string
	Solution    string
	Evidence    string
	CVSS3Score  string
	CVSS2Score  string
	References  []string
	CWEIDs      []string
	Tool        string // 产出告警的工具名
	Port        string // 可选,端口信息并入AlertJSON
}

// alertBuilder 告警构造器,持有漏洞库客户端
type alertBuilder struct {
	cve cvedb.Client
}

func newAlertBuilder(cve cvedb.Client) *alertBuilder {
	return &alertBuilder{cve: cve}
}

// alertResponse 构造一条告警并包成单元素AlertMap [探测函数fan-in用]
// 漏洞库查询失败只降级不报错:富化字段落为"N/A",告警仍然产出
func (b *alertBuilder) alertResponse(ctx context.Context, req AlertRequest) (scanModel.AlertMap, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("failed to build alert: empty title")
	}

	alert := &scanModel.Alert{
		Title:       req.Title,
		AlertRef:    uuid.NewString(),
		Instances:   1,
		Tool:        req.Tool,
		Description: req.Description,
		Solution:    req.Solution,
		CVSS3Score:  req.CVSS3Score,
		CVSS2Score:  req.CVSS2Score,
		References:  req.References,
		CWEIDs:      req.CWEIDs,
	}
	if req.Evidence != "" {
		alert.Evidence = []string{req.Evidence}
	}

	switch req.Type {
	case AlertTypeCveByID, AlertTypeCveByKeyword:
		record := b.lookup(ctx, req)
		alert.Generator = scanModel.GeneratorCve
		alert.Complexity = record.Complexity()
		alert.Description = firstNonNA(req.Description, record.Description)
		alert.CVSS3Score = firstNonNA(req.CVSS3Score, record.CVSS3Score)
		alert.CVSS2Score = firstNonNA(req.CVSS2Score, record.CVSS2Score)
		alert.References = append(alert.References, record.References...)
		alert.CWEIDs = append(alert.CWEIDs, record.CWEIDs...)
		alert.AlertJSON = map[string]interface{}{"cve_id": record.CVEID}
	case AlertTypeManual:
		alert.Generator = scanModel.GeneratorCve
		alert.Complexity = scanModel.NormalizeSeverity(req.Complexity)
	case AlertTypeInfoOnly:
		alert.Generator = scanModel.GeneratorInfo
		alert.Complexity = scanModel.NormalizeSeverity(req.Complexity)
	default:
		return nil, fmt.Errorf("unknown alert type: %d", req.Type)
	}

	if req.Port != "" {
		if alert.AlertJSON == nil {
			alert.AlertJSON = make(map[string]interface{})
		}
		alert.AlertJSON["port"] = req.Port
	}
	alert.AlertOrder = scanModel.SeverityRank(alert.Complexity)

	result := make(scanModel.AlertMap)
	result.Add(alert)
	return result, nil
}

// lookup 查询漏洞库,失败时降级为全N/A记录
func (b *alertBuilder) lookup(ctx context.Context, req AlertRequest) *cvedb.Record {
	var (
		record *cvedb.Record
		err    error
	)
	if req.Type == AlertTypeCveByID {
		record, err = b.cve.ByID(ctx, req.CVEID)
	} else {
		record, err = b.cve.ByKeyword(ctx, req.Keyword)
	}
	if err != nil || record == nil {
		return &cvedb.Record{
			CVEID:       cvedb.FieldNA,
			Description: cvedb.FieldNA,
			CVSS3Score:  cvedb.FieldNA,
			CVSS3Sev:    cvedb.FieldNA,
			CVSS2Score:  cvedb.FieldNA,
			CVSS2AC:     cvedb.FieldNA,
		}
	}
	return record
}

// zapAlertPayload ZAP工具原始JSON中的单条告警
type zapAlertPayload struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	URLs        []zapAlertURL `json:"urls"`
	Instances   int           `json:"instances"`
	CWEID       string        `json:"cweid"`
	PluginID    string        `json:"plugin_id"`
	Reference   string        `json:"reference"`
	Solution    string        `json:"solution"`
	Risk        string        `json:"risk"`
}

// zapAlertURL ZAP告警的单次检出实例
type zapAlertURL struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	Parameter string `json:"parameter"`
	Attack    string `json:"attack"`
	Evidence  string `json:"evidence"`
}

// zapRawResult ZAP扫描raw_result的JSON结构
type zapRawResult struct {
	Alerts map[string]zapAlertPayload `json:"alerts"`
}

// zapBulk 批量导入ZAP原生告警 [AlertTypeZapBulk]
// 同标题合并:instances累加,URL集合并集
func (b *alertBuilder) zapBulk(rawResult, toolName string) (scanModel.AlertMap, error) {
	var parsed zapRawResult
	if err := json.Unmarshal([]byte(rawResult), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode zap scan result: %w", err)
	}

	result := make(scanModel.AlertMap)
	for title, payload := range parsed.Alerts {
		if title == "" {
			title = payload.Name
		}
		if title == "" {
			continue
		}
		complexity := scanModel.NormalizeSeverity(payload.Risk)
		instances := payload.Instances
		if instances <= 0 {
			instances = 1
		}

		alert := &scanModel.Alert{
			Title:       title,
			Complexity:  complexity,
			AlertOrder:  scanModel.SeverityRank(complexity),
			AlertRef:    uuid.NewString(),
			Instances:   instances,
			Tool:        toolName,
			Description: payload.Description,
			Solution:    payload.Solution,
			CVSS3Score:  cvedb.FieldNA,
			CVSS2Score:  cvedb.FieldNA,
			References:  splitZapReference(payload.Reference),
			Generator:   scanModel.GeneratorZap,
		}
		if payload.CWEID != "" && payload.CWEID != "-1" {
			alert.CWEIDs = []string{"CWE-" + payload.CWEID}
		}
		for _, u := range payload.URLs {
			if u.URL != "" {
				alert.URLs = append(alert.URLs, u.URL)
			}
			if u.Evidence != "" {
				alert.Evidence = append(alert.Evidence, u.Evidence)
			}
		}
		if payload.PluginID != "" {
			alert.AlertJSON = map[string]interface{}{"plugin_id": payload.PluginID}
		}
		result.Add(alert)
	}
	return result, nil
}

// splitZapReference ZAP的reference字段以<br>分隔多条链接
func splitZapReference(reference string) []string {
	if reference == "" {
		return nil
	}
	var refs []string
	for _, part := range strings.Split(reference, "<br>") {
		part = strings.TrimSpace(part)
		if part != "" {
			refs = append(refs, part)
		}
	}
	return refs
}

// firstNonNA 优先取调用方提供的值,缺失时落到漏洞库字段
func firstNonNA(preferred, fallback string) string {
	if preferred != "" && preferred != cvedb.FieldNA {
		return preferred
	}
	if fallback != "" {
		return fallback
	}
	return cvedb.FieldNA
}
