/**
 * 解析流水线:默认处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 未注册工具命令的兜底,把原始输出原样包成一条信息告警
 */
package compose

import (
	"context"
	"strings"

	scanModel "scanmaster/internal/model/scanner"

	"github.com/google/uuid"
)

// defaultDetector 兜底探测函数
// 标题取工具展示名,原始输出不做任何解析直接作为证据
func defaultDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	alert := &scanModel.Alert{
		Title:       toolTitle(in.Tool.Name),
		Complexity:  scanModel.SeverityInfo,
		AlertOrder:  scanModel.SeverityRank(scanModel.SeverityInfo),
		AlertRef:    uuid.NewString(),
		Instances:   1,
		Tool:        in.Tool.Name,
		Description: "Other information",
		Evidence:    []string{in.Raw},
		Generator:   scanModel.GeneratorInfo,
	}

	result := make(scanModel.AlertMap)
	result.Add(alert)
	return result, nil
}

// toolTitle 工具名转展示标题,连字符转空格且首字母大写
func toolTitle(name string) string {
	title := strings.ReplaceAll(name, "-", " ")
	if title == "" {
		return title
	}
	return strings.ToUpper(title[:1]) + strings.ToLower(title[1:])
}
