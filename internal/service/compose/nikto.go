/**
 * 解析流水线:nikto处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 检查nikto输出中的anti-clickjacking头缺失提示
 */
package compose

import (
	"context"
	"regexp"

	scanModel "scanmaster/internal/model/scanner"
)

// nikto对X-Frame-Options缺失的固定提示文本
var niktoClickjackingRegex = regexp.MustCompile(`(?i)The anti-clickjacking X-Frame-Options header is not present\.`)

// clickjackingDetector 命中提示文本时按CVE-2018-17192产出富化告警
func (b *alertBuilder) clickjackingDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	if !niktoClickjackingRegex.MatchString(in.Raw) {
		return nil, nil
	}
	return b.alertResponse(ctx, AlertRequest{
		Type:     AlertTypeCveByID,
		Title:    "Missing Anti-clickjacking Header",
		CVEID:    "CVE-2018-17192",
		Evidence: "The anti-clickjacking X-Frame-Options header is not present.",
		Tool:     in.Tool.Name,
	})
}
