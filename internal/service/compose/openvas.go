/**
 * 解析流水线:openvas处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 切分openvas报告的Issue块,从块内字段正则提取标题/威胁级别/描述/修复建议/证据/参考
 */
package compose

import (
	"context"
	"regexp"
	"strings"

	scanModel "scanmaster/internal/model/scanner"
)

var (
	// Issue块:从"Issue"分隔条到下一个空行段或文本结束
	openvasIssueRegex = regexp.MustCompile(`(?s)Issue\n-----\n(.*?)(?:\n\n\n|\z)`)

	openvasTitleRegex    = regexp.MustCompile(`NVT: (?P<title>.*?)\n`)
	openvasThreatRegex   = regexp.MustCompile(`Threat: (?P<complexity>\w+) \(CVSS: (?P<cvss>\d+\.\d+)\)`)
	openvasSummaryRegex  = regexp.MustCompile(`(?s)Summary:\s*(?P<description>.*?)\n\n`)
	openvasSolutionRegex = regexp.MustCompile(`(?s)Solution:\s*(?P<solution>.*?)\n\n`)
	openvasEvidenceRegex = regexp.MustCompile(`(?s)Vulnerability Detection Result:\s*(?P<evidence>.*?)\n\n`)
	openvasRefsRegex     = regexp.MustCompile(`(?s)References:\n(?P<reference>.*)$`)
)

// openvasDetector 每个Issue块产出一条信息告警,威胁级别和CVSS分数取自报告本身
func (b *alertBuilder) openvasDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	issues := openvasIssueRegex.FindAllStringSubmatch(in.Raw, -1)
	if len(issues) == 0 {
		return nil, nil
	}

	result := make(scanModel.AlertMap)
	for _, issue := range issues {
		block := issue[1]

		title := openvasField(openvasTitleRegex, block, "title")
		if title == "" {
			continue
		}

		req := AlertRequest{
			Type:        AlertTypeInfoOnly,
			Title:       title,
			Complexity:  openvasField(openvasThreatRegex, block, "complexity"),
			Description: openvasField(openvasSummaryRegex, block, "description"),
			Solution:    openvasField(openvasSolutionRegex, block, "solution"),
			Evidence:    strings.ReplaceAll(openvasField(openvasEvidenceRegex, block, "evidence"), "<br/>", "\n"),
			CVSS3Score:  openvasField(openvasThreatRegex, block, "cvss"),
			Tool:        in.Tool.Name,
		}
		if refs := openvasField(openvasRefsRegex, block, "reference"); refs != "" {
			req.References = splitOpenvasReferences(refs)
		}

		partial, err := b.alertResponse(ctx, req)
		if err != nil {
			return nil, err
		}
		result.MergeFrom(partial)
	}
	return result, nil
}

// openvasField 提取命名分组并裁剪空白,未命中返回空串
func openvasField(re *regexp.Regexp, block, group string) string {
	match := re.FindStringSubmatch(block)
	if match == nil {
		return ""
	}
	for i, name := range re.SubexpNames() {
		if name == group && i < len(match) {
			return strings.TrimSpace(match[i])
		}
	}
	return ""
}

// splitOpenvasReferences References段按行切分为链接列表
func splitOpenvasReferences(refs string) []string {
	var out []string
	for _, line := range strings.Split(refs, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
