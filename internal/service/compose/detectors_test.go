package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanModel "scanmaster/internal/model/scanner"
)

func detectorInput(toolName, raw string) *Input {
	return &Input{
		Target: &scanModel.Target{Host: "10.0.0.8", RawResult: raw},
		Tool:   &scanModel.Tool{Name: toolName, ToolCmd: toolName},
		Raw:    raw,
	}
}

const nmapVulnersOutput = `Starting Nmap 7.93 ( https://nmap.org )
Nmap scan report for 10.0.0.8
PORT     STATE    SERVICE
22/tcp   open     ssh
| vulners:
|   cpe:/a:openbsd:openssh:8.2p1:
|_      CVE-2020-15778  6.8  https://vulners.com/cve/CVE-2020-15778
80/tcp   closed   http
443/tcp  filtered https
Service detection performed. Please report any incorrect results.`

func TestNmapPortDetector(t *testing.T) {
	b := testBuilder()

	result, err := b.nmapPortDetector(context.Background(), detectorInput("nmap", nmapVulnersOutput))
	require.NoError(t, err)

	// 只有open端口产出告警,closed/filtered跳过
	require.NotNil(t, result["Open Port 22/tcp (ssh)"])
	assert.Nil(t, result["Open Port 80/tcp (http)"])
	assert.Nil(t, result["Open Port 443/tcp (https)"])

	// vulners段落的首个CVE走漏洞库富化
	cveAlert := result["CVE-2020-15778 (22/tcp ssh)"]
	require.NotNil(t, cveAlert)
	assert.Equal(t, scanModel.GeneratorCve, cveAlert.Generator)

	// 证据已去掉表格符号
	portAlert := result["Open Port 22/tcp (ssh)"]
	assert.NotContains(t, portAlert.Evidence[0], "|_")

	// 无端口表示无检出
	empty, err := b.nmapPortDetector(context.Background(), detectorInput("nmap", "no ports here"))
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCleanNmapSection(t *testing.T) {
	cleaned := cleanNmapSection("| vulners:\n|_  CVE-1\nService detection performed. Please report")
	assert.NotContains(t, cleaned, "|")
	assert.NotContains(t, cleaned, "Service detection performed")
}

func TestCurlDetectors(t *testing.T) {
	b := testBuilder()
	ctx := context.Background()

	withHeader := "HTTP/1.1 200 OK\r\nX-Content-Type-Options: nosniff\r\n"
	withoutHeader := "HTTP/1.1 200 OK\r\nServer: Apache/2.2.0\r\n"

	// 头存在时两个探测函数都无检出
	result, err := b.contentTypeOptionsDetector(ctx, detectorInput("curl", withHeader))
	require.NoError(t, err)
	assert.Nil(t, result)
	result, err = b.unsupportedWebServerDetector(ctx, detectorInput("curl", withHeader))
	require.NoError(t, err)
	assert.Nil(t, result)

	// 头缺失时产出CVE富化告警
	result, err = b.contentTypeOptionsDetector(ctx, detectorInput("curl", withoutHeader))
	require.NoError(t, err)
	require.NotNil(t, result["X-Content-Type-Options Header Missing"])
	assert.Equal(t, scanModel.SeverityMedium, result["X-Content-Type-Options Header Missing"].Complexity)

	result, err = b.unsupportedWebServerDetector(ctx, detectorInput("curl", withoutHeader))
	require.NoError(t, err)
	alert := result["Unsupported Web Server Detection"]
	require.NotNil(t, alert)
	assert.Equal(t, scanModel.SeverityCritical, alert.Complexity)
	assert.Equal(t, "10", alert.CVSS3Score)
}

func TestSslyzeDetector(t *testing.T) {
	raw := ` CHECKING CONNECTIVITY TO SERVER(S)
 * Certificates Information:
       Hostname sent for SNI:             example.com
       Number of certificates detected:   1

 * SSLV2 Cipher Suites:
      Server rejected all cipher suites.

 * Empty Section:
`
	result, err := sslyzeDetector(context.Background(), detectorInput("sslyze", raw))
	require.NoError(t, err)
	require.Len(t, result, 2, "empty sections are dropped")

	cert := result["Certificates Information"]
	require.NotNil(t, cert)
	assert.Contains(t, cert.Evidence[0], "Hostname sent for SNI")
	assert.Equal(t, scanModel.SeverityInfo, cert.Complexity)

	require.NotNil(t, result["SSLV2 Cipher Suites"])

	empty, err := sslyzeDetector(context.Background(), detectorInput("sslyze", "no sections"))
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestClickjackingDetector(t *testing.T) {
	b := testBuilder()
	ctx := context.Background()

	raw := "+ Server: Apache\n+ The anti-clickjacking X-Frame-Options header is not present.\n"
	result, err := b.clickjackingDetector(ctx, detectorInput("nikto", raw))
	require.NoError(t, err)
	require.NotNil(t, result["Missing Anti-clickjacking Header"])

	empty, err := b.clickjackingDetector(ctx, detectorInput("nikto", "+ Server: Apache\n"))
	require.NoError(t, err)
	assert.Nil(t, empty)
}

const openvasOutput = `Issue
-----
NVT: TLS Version Detection
Threat: Medium (CVSS: 5.3)

Summary:
The service supports outdated TLS protocol versions.

Vulnerability Detection Result:
TLSv1.0 accepted<br/>TLSv1.1 accepted

Solution:
Disable TLS 1.0 and 1.1.

References:
https://example.org/tls
https://example.org/pci


Issue
-----
NVT: ICMP Timestamp Reply
Threat: Low (CVSS: 2.1)

Summary:
Remote host replies to ICMP timestamp requests.

`

func TestOpenvasDetector(t *testing.T) {
	b := testBuilder()

	result, err := b.openvasDetector(context.Background(), detectorInput("openvas", openvasOutput))
	require.NoError(t, err)
	require.Len(t, result, 2)

	tls := result["TLS Version Detection"]
	require.NotNil(t, tls)
	assert.Equal(t, scanModel.SeverityMedium, tls.Complexity)
	assert.Equal(t, "5.3", tls.CVSS3Score)
	assert.Equal(t, "The service supports outdated TLS protocol versions.", tls.Description)
	assert.Equal(t, "Disable TLS 1.0 and 1.1.", tls.Solution)
	// <br/>已展开为换行
	assert.Contains(t, tls.Evidence[0], "TLSv1.0 accepted\nTLSv1.1 accepted")
	assert.Equal(t, []string{"https://example.org/tls", "https://example.org/pci"}, tls.References)

	icmp := result["ICMP Timestamp Reply"]
	require.NotNil(t, icmp)
	assert.Equal(t, scanModel.SeverityLow, icmp.Complexity)

	empty, err := b.openvasDetector(context.Background(), detectorInput("openvas", "clean report"))
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestDefaultDetector(t *testing.T) {
	result, err := defaultDetector(context.Background(), detectorInput("dirb-scan", "raw tool output"))
	require.NoError(t, err)
	require.Len(t, result, 1)

	alert := result["Dirb scan"]
	require.NotNil(t, alert)
	assert.Equal(t, scanModel.SeverityInfo, alert.Complexity)
	assert.Equal(t, "Other information", alert.Description)
	assert.Equal(t, []string{"raw tool output"}, alert.Evidence)
}

func TestToolTitle(t *testing.T) {
	assert.Equal(t, "Owasp zap", toolTitle("owasp-zap"))
	assert.Equal(t, "Nmap", toolTitle("nmap"))
	assert.Equal(t, "", toolTitle(""))
}

// 注册表按工具命令精确匹配,同族命令共享处理器,未注册命令落到默认处理器
func TestRegistryLookup(t *testing.T) {
	registry := buildRegistry(testBuilder())

	assert.Equal(t, "nmap", registry.Lookup("nmap").Name)
	assert.Equal(t, "nmap", registry.Lookup("nmap_vulners").Name)
	assert.Equal(t, "curl", registry.Lookup("curl -I").Name)
	assert.Equal(t, "owasp_zap", registry.Lookup("active_owasp").Name)
	// 前缀不匹配
	assert.Equal(t, "default", registry.Lookup("nmap -sV").Name)
	assert.Equal(t, "default", registry.Lookup("unknown_tool").Name)
}
