/**
 * CVE富化客户端
 * @author: sun977
 * @date: 2025.11.22
 * @description: 查询外部漏洞库(NVD REST 2.0)按CVE编号或关键词取回严重级别/评分/描述
 * @note: 记录不存在不算错误,缺失字段统一降级为"N/A";只有传输层失败才返回error
 */
package cvedb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	scanModel "scanmaster/internal/model/scanner"
)

// FieldNA 缺失字段的占位值
const FieldNA = "N/A"

// Record 规范化的漏洞记录
// 任何上游缺失的字段都是"N/A"而不是空串,渲染层不需要再判空
type Record struct {
	CVEID       string   // CVE编号
	Description string   // 英文描述
	CVSS3Score  string   // CVSS v3基础分
	CVSS3Sev    string   // CVSS v3基础严重级别
	CVSS2Score  string   // CVSS v2基础分
	CVSS2AC     string   // CVSS v2 access complexity
	References  []string // 参考链接
	CWEIDs      []string // CWE编号
}

// Complexity 推导告警的规范化严重级别key
// 优先CVSS v3基础级别,其次CVSS v2 access complexity,都缺失时归入info
func (r *Record) Complexity() string {
	if r.CVSS3Sev != FieldNA && r.CVSS3Sev != "" {
		return scanModel.NormalizeSeverity(r.CVSS3Sev)
	}
	if r.CVSS2AC != FieldNA && r.CVSS2AC != "" {
		return scanModel.NormalizeSeverity(r.CVSS2AC)
	}
	return scanModel.SeverityInfo
}

// Client 漏洞库查询接口
type Client interface {
	// ByID 按CVE编号精确查询
	ByID(ctx context.Context, cveID string) (*Record, error)
	// ByKeyword 按关键词查询,取最佳匹配(第一条)
	ByKeyword(ctx context.Context, keyword string) (*Record, error)
}

// NVDClient NVD REST 2.0 API客户端
type NVDClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewNVDClient 创建NVD客户端实例
func NewNVDClient(baseURL, apiKey string, timeout time.Duration) *NVDClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NVDClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NVD 2.0 响应结构 [只解析用到的字段]
type nvdResponse struct {
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []nvdCVSS3 `json:"cvssMetricV31"`
		CVSSMetricV30 []nvdCVSS3 `json:"cvssMetricV30"`
		CVSSMetricV2  []struct {
			CVSSData struct {
				BaseScore        float64 `json:"baseScore"`
				AccessComplexity string  `json:"accessComplexity"`
			} `json:"cvssData"`
		} `json:"cvssMetricV2"`
	} `json:"metrics"`
	Weaknesses []struct {
		Description []struct {
			Lang  string `json:"lang"`
			Value string `json:"value"`
		} `json:"description"`
	} `json:"weaknesses"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

type nvdCVSS3 struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

// ByID 按CVE编号精确查询
func (c *NVDClient) ByID(ctx context.Context, cveID string) (*Record, error) {
	return c.query(ctx, url.Values{"cveId": {cveID}})
}

// ByKeyword 按关键词查询,取第一条匹配
func (c *NVDClient) ByKeyword(ctx context.Context, keyword string) (*Record, error) {
	return c.query(ctx, url.Values{
		"keywordSearch":  {keyword},
		"resultsPerPage": {"1"},
	})
}

// query 发起查询并解析响应
func (c *NVDClient) query(ctx context.Context, params url.Values) (*Record, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cve request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query cve database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cve database returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cve response: %w", err)
	}

	var parsed nvdResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode cve response: %w", err)
	}

	// 查无记录不算错误,返回全N/A记录
	if len(parsed.Vulnerabilities) == 0 {
		return emptyRecord(), nil
	}

	return normalizeRecord(&parsed.Vulnerabilities[0].CVE), nil
}

// emptyRecord 构建全N/A记录
func emptyRecord() *Record {
	return &Record{
		CVEID:       FieldNA,
		Description: FieldNA,
		CVSS3Score:  FieldNA,
		CVSS3Sev:    FieldNA,
		CVSS2Score:  FieldNA,
		CVSS2AC:     FieldNA,
	}
}

// normalizeRecord 将NVD原始记录规范化,缺失字段填"N/A"
func normalizeRecord(cve *nvdCVE) *Record {
	record := emptyRecord()

	if cve.ID != "" {
		record.CVEID = cve.ID
	}

	// 取英文描述
	for _, desc := range cve.Descriptions {
		if desc.Lang == "en" && desc.Value != "" {
			record.Description = desc.Value
			break
		}
	}

	// CVSS v3 优先3.1,其次3.0
	v3 := cve.Metrics.CVSSMetricV31
	if len(v3) == 0 {
		v3 = cve.Metrics.CVSSMetricV30
	}
	if len(v3) > 0 {
		record.CVSS3Score = fmt.Sprintf("%.1f", v3[0].CVSSData.BaseScore)
		if v3[0].CVSSData.BaseSeverity != "" {
			record.CVSS3Sev = v3[0].CVSSData.BaseSeverity
		}
	}

	// CVSS v2
	if len(cve.Metrics.CVSSMetricV2) > 0 {
		v2 := cve.Metrics.CVSSMetricV2[0].CVSSData
		record.CVSS2Score = fmt.Sprintf("%.1f", v2.BaseScore)
		if v2.AccessComplexity != "" {
			record.CVSS2AC = v2.AccessComplexity
		}
	}

	// CWE编号 [过滤掉NVD的占位词NVD-CWE-*]
	for _, weakness := range cve.Weaknesses {
		for _, desc := range weakness.Description {
			if desc.Lang == "en" && strings.HasPrefix(desc.Value, "CWE-") {
				record.CWEIDs = append(record.CWEIDs, desc.Value)
			}
		}
	}

	for _, ref := range cve.References {
		if ref.URL != "" {
			record.References = append(record.References, ref.URL)
		}
	}

	return record
}
