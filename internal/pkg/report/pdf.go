/**
 * PDF报告渲染器
 * @author: sun977
 * @date: 2025.11.23
 * @description: 把汇编好的告警数据渲染成PDF文件,封面+风险分布表+逐条告警详情
 * @note: 渲染器只消费数据不触达数据库,渲染失败不影响已落库的解析结果
 */
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	scanModel "scanmaster/internal/model/scanner"
)

// 渲染参数
const (
	pageFont   = "Helvetica"
	lineHeight = 6.0
)

// severityColors 严重级别对应的RGB颜色
var severityColors = map[string][]int{
	scanModel.SeverityCritical:      {139, 0, 0},
	scanModel.SeverityHigh:          {220, 38, 38},
	scanModel.SeverityMedium:        {234, 138, 0},
	scanModel.SeverityLow:           {202, 178, 0},
	scanModel.SeverityInfo:          {59, 130, 246},
	scanModel.SeverityFalsePositive: {128, 128, 128},
}

// Data 渲染输入
type Data struct {
	Host        string             // 扫描主机
	CompanyName string             // 报告落款公司名
	GeneratedAt time.Time          // 生成时间
	Alerts      []*scanModel.Alert // 已按严重度排序的告警
	RiskLevels  map[string]int     // 严重级别分布
}

// PDFRenderer PDF渲染器
type PDFRenderer struct {
	outputDir string
}

// NewPDFRenderer 创建渲染器,outputDir为PDF落盘目录
func NewPDFRenderer(outputDir string) *PDFRenderer {
	return &PDFRenderer{outputDir: outputDir}
}

// Render 渲染并落盘,返回生成的文件相对路径
// 文件名用uuid保证唯一,目录按需创建
func (r *PDFRenderer) Render(data *Data, subDir string) (string, error) {
	dir := filepath.Join(r.outputDir, subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	fileName := uuid.NewString() + ".pdf"
	fullPath := filepath.Join(dir, fileName)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	r.addCover(pdf, data)
	r.addRiskSummary(pdf, data)
	r.addAlerts(pdf, data)

	if err := pdf.OutputFileAndClose(fullPath); err != nil {
		return "", fmt.Errorf("failed to write pdf report: %w", err)
	}
	return filepath.Join(subDir, fileName), nil
}

// addCover 封面页
func (r *PDFRenderer) addCover(pdf *gofpdf.Fpdf, data *Data) {
	pdf.AddPage()
	pdf.SetFont(pageFont, "B", 28)
	pdf.SetTextColor(30, 41, 59)
	pdf.Ln(60)
	pdf.CellFormat(0, 12, "Security Scan Report", "", 1, "C", false, 0, "")

	pdf.SetFont(pageFont, "", 14)
	pdf.SetTextColor(80, 80, 80)
	pdf.Ln(10)
	pdf.CellFormat(0, 8, data.Host, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.CellFormat(0, 8, data.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"), "", 1, "C", false, 0, "")

	if data.CompanyName != "" {
		pdf.Ln(40)
		pdf.SetFont(pageFont, "I", 11)
		pdf.CellFormat(0, 8, data.CompanyName, "", 1, "C", false, 0, "")
	}
}

// addRiskSummary 风险级别分布表
func (r *PDFRenderer) addRiskSummary(pdf *gofpdf.Fpdf, data *Data) {
	pdf.AddPage()
	r.sectionHeader(pdf, "Risk Summary")

	pdf.SetFont(pageFont, "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(90, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Findings", "1", 1, "C", true, 0, "")

	// 固定按严重度降序展示
	order := []string{
		scanModel.SeverityCritical,
		scanModel.SeverityHigh,
		scanModel.SeverityMedium,
		scanModel.SeverityLow,
		scanModel.SeverityInfo,
		scanModel.SeverityFalsePositive,
	}
	pdf.SetFont(pageFont, "", 10)
	for _, key := range order {
		color := severityColors[key]
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.CellFormat(90, 7, scanModel.SeverityDisplay(key), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(40, 7, fmt.Sprintf("%d", data.RiskLevels[key]), "1", 1, "C", false, 0, "")
	}
}

// addAlerts 逐条告警详情
func (r *PDFRenderer) addAlerts(pdf *gofpdf.Fpdf, data *Data) {
	if len(data.Alerts) == 0 {
		pdf.AddPage()
		r.sectionHeader(pdf, "Findings")
		pdf.SetFont(pageFont, "", 11)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, lineHeight, "No findings were identified during this scan.", "", "L", false)
		return
	}

	pdf.AddPage()
	r.sectionHeader(pdf, "Findings")

	for _, alert := range data.Alerts {
		color := severityColors[alert.Complexity]
		if color == nil {
			color = severityColors[scanModel.SeverityInfo]
		}

		pdf.SetFont(pageFont, "B", 12)
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.MultiCell(0, 7, fmt.Sprintf("[%s] %s", scanModel.SeverityDisplay(alert.Complexity), alert.Title), "", "L", false)

		pdf.SetFont(pageFont, "", 9)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 5, fmt.Sprintf("Ref: %s    Tool: %s    Instances: %d", alert.AlertRef, alert.Tool, alert.Instances), "", "L", false)

		r.field(pdf, "Description", alert.Description)
		r.field(pdf, "Solution", alert.Solution)
		if alert.CVSS3Score != "" {
			r.field(pdf, "CVSS v3", alert.CVSS3Score)
		}
		if alert.CVSS2Score != "" {
			r.field(pdf, "CVSS v2", alert.CVSS2Score)
		}
		if len(alert.CWEIDs) > 0 {
			r.field(pdf, "CWE", joinLines(alert.CWEIDs))
		}
		if len(alert.Evidence) > 0 {
			r.field(pdf, "Evidence", joinLines(alert.Evidence))
		}
		if len(alert.URLs) > 0 {
			r.field(pdf, "URLs", joinLines(alert.URLs))
		}
		if len(alert.References) > 0 {
			r.field(pdf, "References", joinLines(alert.References))
		}
		pdf.Ln(6)
	}
}

// field 渲染单个字段,空值跳过
func (r *PDFRenderer) field(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont(pageFont, "B", 10)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, lineHeight, label, "", 1, "L", false, 0, "")
	pdf.SetFont(pageFont, "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(0, 5, value, "", "L", false)
	pdf.Ln(1)
}

// sectionHeader 小节标题
func (r *PDFRenderer) sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(pageFont, "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// joinLines 多值字段逐行拼接
func joinLines(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += "\n"
		}
		out += v
	}
	return out
}
