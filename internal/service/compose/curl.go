/**
 * 解析流水线:curl处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 检查HTTP响应头缺陷,两个探测函数共享"curl -I"命令
 */
package compose

import (
	"context"
	"regexp"

	scanModel "scanmaster/internal/model/scanner"
)

// X-Content-Type-Options响应头存在性检查
var contentTypeOptionsRegex = regexp.MustCompile(`(?i)X-Content-Type-Options:\s*nosniff`)

// contentTypeOptionsDetector 缺少X-Content-Type-Options头时按CVE-2019-19089产出富化告警
func (b *alertBuilder) contentTypeOptionsDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	if contentTypeOptionsRegex.MatchString(in.Raw) {
		return nil, nil
	}
	return b.alertResponse(ctx, AlertRequest{
		Type:     AlertTypeCveByID,
		Title:    "X-Content-Type-Options Header Missing",
		CVEID:    "CVE-2019-19089",
		Evidence: "Response headers do not include X-Content-Type-Options: nosniff",
		Tool:     in.Tool.Name,
	})
}

// unsupportedWebServerDetector 同一响应头缺失还意味着服务端可能已停止维护
// 该检出无CVE编号,按手工载荷产出 [评分来自漏洞库的历史快照]
func (b *alertBuilder) unsupportedWebServerDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	if contentTypeOptionsRegex.MatchString(in.Raw) {
		return nil, nil
	}
	return b.alertResponse(ctx, AlertRequest{
		Type:       AlertTypeManual,
		Title:      "Unsupported Web Server Detection",
		Complexity: "CRITICAL",
		Description: "According to its version, the remote web server is obsolete and no longer " +
			"maintained by its vendor or provider. Lack of support implies that no new security " +
			"patches for the product will be released by the vendor. As a result, it may contain " +
			"security vulnerabilities.",
		Solution: "Remove the web server if it is no longer needed. Otherwise, upgrade to a " +
			"supported version if possible or switch to another server.",
		CVSS3Score: "10",
		CVSS2Score: "7.5",
		Tool:       in.Tool.Name,
	})
}
