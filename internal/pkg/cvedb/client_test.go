package cvedb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scanModel "scanmaster/internal/model/scanner"
)

const nvdFullResponse = `{
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2020-15778",
        "descriptions": [
          {"lang": "es", "value": "descripción en español"},
          {"lang": "en", "value": "scp in OpenSSH allows command injection in the scp.c toLocal function."}
        ],
        "metrics": {
          "cvssMetricV31": [
            {"cvssData": {"baseScore": 7.8, "baseSeverity": "HIGH"}}
          ],
          "cvssMetricV2": [
            {"cvssData": {"baseScore": 6.8, "accessComplexity": "MEDIUM"}}
          ]
        },
        "weaknesses": [
          {"description": [
            {"lang": "en", "value": "CWE-78"},
            {"lang": "en", "value": "NVD-CWE-noinfo"}
          ]}
        ],
        "references": [
          {"url": "https://example.org/advisory"},
          {"url": ""}
        ]
      }
    }
  ]
}`

func TestByIDFullRecord(t *testing.T) {
	var gotQuery string
	var gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("cveId")
		gotAPIKey = r.Header.Get("apiKey")
		w.Write([]byte(nvdFullResponse))
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "test-key", 0)
	record, err := client.ByID(context.Background(), "CVE-2020-15778")
	require.NoError(t, err)

	assert.Equal(t, "CVE-2020-15778", gotQuery)
	assert.Equal(t, "test-key", gotAPIKey)

	assert.Equal(t, "CVE-2020-15778", record.CVEID)
	assert.Equal(t, "scp in OpenSSH allows command injection in the scp.c toLocal function.", record.Description)
	assert.Equal(t, "7.8", record.CVSS3Score)
	assert.Equal(t, "HIGH", record.CVSS3Sev)
	assert.Equal(t, "6.8", record.CVSS2Score)
	assert.Equal(t, "MEDIUM", record.CVSS2AC)
	// NVD-CWE-*占位词被过滤
	assert.Equal(t, []string{"CWE-78"}, record.CWEIDs)
	assert.Equal(t, []string{"https://example.org/advisory"}, record.References)
}

func TestByKeywordTakesFirstMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "openssh scp", r.URL.Query().Get("keywordSearch"))
		assert.Equal(t, "1", r.URL.Query().Get("resultsPerPage"))
		w.Write([]byte(nvdFullResponse))
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "", 0)
	record, err := client.ByKeyword(context.Background(), "openssh scp")
	require.NoError(t, err)
	assert.Equal(t, "CVE-2020-15778", record.CVEID)
}

// 查无记录不算错误,返回全N/A记录
func TestByIDNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities": []}`))
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "", 0)
	record, err := client.ByID(context.Background(), "CVE-1999-0000")
	require.NoError(t, err)
	assert.Equal(t, FieldNA, record.CVEID)
	assert.Equal(t, FieldNA, record.Description)
	assert.Equal(t, FieldNA, record.CVSS3Score)
	assert.Equal(t, FieldNA, record.CVSS2AC)
	assert.Empty(t, record.References)
}

func TestByIDServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "", 0)
	_, err := client.ByID(context.Background(), "CVE-2020-15778")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestByIDMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "", 0)
	_, err := client.ByID(context.Background(), "CVE-2020-15778")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode cve response")
}

// 部分字段缺失时逐字段降级,而不是整条丢弃
func TestPartialRecordDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
  "vulnerabilities": [
    {"cve": {
      "id": "CVE-2019-19089",
      "metrics": {
        "cvssMetricV30": [{"cvssData": {"baseScore": 4.0, "baseSeverity": "MEDIUM"}}]
      }
    }}
  ]
}`))
	}))
	defer server.Close()

	client := NewNVDClient(server.URL, "", 0)
	record, err := client.ByID(context.Background(), "CVE-2019-19089")
	require.NoError(t, err)

	assert.Equal(t, "CVE-2019-19089", record.CVEID)
	assert.Equal(t, FieldNA, record.Description)
	// v3.1缺失时回退到v3.0
	assert.Equal(t, "4.0", record.CVSS3Score)
	assert.Equal(t, "MEDIUM", record.CVSS3Sev)
	assert.Equal(t, FieldNA, record.CVSS2Score)
}

func TestRecordComplexity(t *testing.T) {
	// CVSS v3级别优先
	record := &Record{CVSS3Sev: "HIGH", CVSS2AC: "LOW"}
	assert.Equal(t, scanModel.SeverityHigh, record.Complexity())

	// v3缺失时回退v2 access complexity
	record = &Record{CVSS3Sev: FieldNA, CVSS2AC: "MEDIUM"}
	assert.Equal(t, scanModel.SeverityMedium, record.Complexity())

	// 全缺失归入info
	record = &Record{CVSS3Sev: FieldNA, CVSS2AC: FieldNA}
	assert.Equal(t, scanModel.SeverityInfo, record.Complexity())
}
