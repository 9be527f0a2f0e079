/**
 * 解析流水线:OWASP ZAP处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: ZAP扫描的raw_result本身就是结构化JSON,整体批量导入为原生告警
 */
package compose

import (
	"context"

	scanModel "scanmaster/internal/model/scanner"
)

// zapDetector 批量导入ZAP告警
// 解析失败返回error由流水线记日志跳过 [其他工具是纯文本,只有ZAP要求JSON]
func (b *alertBuilder) zapDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	return b.zapBulk(in.Raw, in.Tool.Name)
}
