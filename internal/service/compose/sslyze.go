/**
 * 解析流水线:sslyze处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 按"* Section:"标题切分sslyze输出,每个小节产出一条信息告警
 */
package compose

import (
	"context"
	"strings"

	scanModel "scanmaster/internal/model/scanner"

	"github.com/google/uuid"
)

// sslyzeDetector 切分sslyze的检查小节
// 无小节表示无检出,返回空集合
func sslyzeDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	sections := splitSslyzeSections(in.Raw)
	if len(sections) == 0 {
		return nil, nil
	}

	result := make(scanModel.AlertMap)
	for _, section := range sections {
		result.Add(&scanModel.Alert{
			Title:      section.title,
			Complexity: scanModel.SeverityInfo,
			AlertOrder: scanModel.SeverityRank(scanModel.SeverityInfo),
			AlertRef:   uuid.NewString(),
			Instances:  1,
			Evidence:   []string{section.content},
			Tool:       in.Tool.Name,
			Generator:  scanModel.GeneratorInfo,
		})
	}
	return result, nil
}

type sslyzeSection struct {
	title   string
	content string
}

// splitSslyzeSections 提取"* 标题:"小节及其到下一小节之间的正文
func splitSslyzeSections(raw string) []sslyzeSection {
	var sections []sslyzeSection
	lines := strings.Split(raw, "\n")
	current := -1
	var content strings.Builder

	flush := func() {
		if current >= 0 {
			sections[current].content = strings.TrimSpace(content.String())
			content.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "*") && strings.HasSuffix(trimmed, ":") {
			flush()
			title := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(trimmed, "*")), ":")
			if title == "" {
				current = -1
				continue
			}
			sections = append(sections, sslyzeSection{title: title})
			current = len(sections) - 1
			continue
		}
		if current >= 0 {
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	flush()

	// 过滤空正文小节
	out := sections[:0]
	for _, s := range sections {
		if s.content != "" {
			out = append(out, s)
		}
	}
	return out
}
