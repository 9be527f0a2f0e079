/**
 * 解析流水线:nmap处理器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 解析nmap端口表,开放端口产出信息告警,vulners脚本输出提取CVE编号走漏洞库富化
 */
package compose

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	scanModel "scanmaster/internal/model/scanner"
)

var (
	// nmap端口表行,例如 "443/tcp  open  https"
	nmapPortRegex = regexp.MustCompile(`(?P<port>\d{1,5}/tcp)\s+(?P<state>filtered|open|closed)\s+(?P<service>[\w0-9\-_]+)`)
	// vulners脚本输出中的CVE编号
	nmapCveRegex = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)
)

// nmapPortDetector 解析nmap输出
// 每个开放端口一条信息告警;端口段落含vulners输出时再按首个CVE编号产出富化告警
func (b *alertBuilder) nmapPortDetector(ctx context.Context, in *Input) (scanModel.AlertMap, error) {
	matches := nmapPortRegex.FindAllStringSubmatchIndex(in.Raw, -1)
	if len(matches) == 0 {
		// 无端口表示无检出,空集合是合法结果
		return nil, nil
	}

	result := make(scanModel.AlertMap)
	for i, match := range matches {
		port := in.Raw[match[2]:match[3]]
		state := in.Raw[match[4]:match[5]]
		service := in.Raw[match[6]:match[7]]
		if state != "open" {
			continue
		}

		// 本端口段落:从本行结束到下一个端口行开始
		sectionEnd := len(in.Raw)
		if i+1 < len(matches) {
			sectionEnd = matches[i+1][0]
		}
		section := in.Raw[match[1]:sectionEnd]

		portAlert, err := b.alertResponse(ctx, AlertRequest{
			Type:       AlertTypeInfoOnly,
			Title:      fmt.Sprintf("Open Port %s (%s)", port, service),
			Complexity: scanModel.SeverityInfo,
			Description: fmt.Sprintf("Port %s is open and running the %s service.", port, service),
			Evidence:   cleanNmapSection(section),
			Tool:       in.Tool.Name,
			Port:       port,
		})
		if err != nil {
			return nil, err
		}
		result.MergeFrom(portAlert)

		if strings.Contains(section, "vulners") {
			if cveID := nmapCveRegex.FindString(section); cveID != "" {
				cveAlert, err := b.alertResponse(ctx, AlertRequest{
					Type:     AlertTypeCveByID,
					Title:    fmt.Sprintf("%s (%s %s)", cveID, port, service),
					CVEID:    cveID,
					Evidence: cleanNmapSection(section),
					Tool:     in.Tool.Name,
					Port:     port,
				})
				if err != nil {
					return nil, err
				}
				result.MergeFrom(cveAlert)
			}
		}
	}
	return result, nil
}

// cleanNmapSection 去掉nmap脚本输出的表格符号和探测尾注
func cleanNmapSection(section string) string {
	section = strings.SplitN(section, "Service detection performed.", 2)[0]
	section = strings.ReplaceAll(section, "|_", "")
	section = strings.ReplaceAll(section, "|", "")
	return strings.TrimSpace(section)
}
