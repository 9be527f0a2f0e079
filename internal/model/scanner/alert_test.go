package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		native string
		want   string
	}{
		{"Critical", SeverityCritical},
		{"HIGH", SeverityHigh},
		{"Medium", SeverityMedium},
		{"moderate", SeverityMedium},
		{"Low", SeverityLow},
		{"Informational", SeverityInfo},
		{"info", SeverityInfo},
		{"False Positive", SeverityFalsePositive},
		{"false positives", SeverityFalsePositive},
		// 工具输出中带冒号和空白的级别词
		{" High: ", SeverityHigh},
		// 未识别词汇归入info
		{"banana", SeverityInfo},
		{"", SeverityInfo},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeSeverity(c.native), "native=%q", c.native)
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 0, SeverityRank(SeverityCritical))
	assert.Equal(t, 5, SeverityRank(SeverityFalsePositive))
	// 未知key按info处理
	assert.Equal(t, SeverityRank(SeverityInfo), SeverityRank("unknown"))
}

func TestSeverityDisplay(t *testing.T) {
	assert.Equal(t, "Informational", SeverityDisplay(SeverityInfo))
	assert.Equal(t, "False Positive", SeverityDisplay(SeverityFalsePositive))
	assert.Equal(t, "Informational", SeverityDisplay("unknown"))
}

func TestAlertMerge(t *testing.T) {
	a := &Alert{
		Title:       "Open Port 443/tcp (https)",
		Complexity:  SeverityInfo,
		Instances:   1,
		Evidence:    []string{"first sighting"},
		URLs:        []string{"https://example.com/a"},
		References:  []string{"https://ref/1"},
		CWEIDs:      []string{"CWE-16"},
		Description: "original description",
	}
	b := &Alert{
		Title:       "Open Port 443/tcp (https)",
		Complexity:  SeverityHigh, // 后到者的级别不覆盖先到者
		Instances:   2,
		Evidence:    []string{"first sighting", "second sighting"},
		URLs:        []string{"https://example.com/b"},
		References:  []string{"https://ref/1", "https://ref/2"},
		CWEIDs:      []string{"CWE-16", "CWE-200"},
		Description: "other description",
	}

	a.Merge(b)

	assert.Equal(t, 3, a.Instances)
	assert.Equal(t, []string{"first sighting", "second sighting"}, a.Evidence)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, a.URLs)
	assert.Equal(t, []string{"https://ref/1", "https://ref/2"}, a.References)
	assert.Equal(t, []string{"CWE-16", "CWE-200"}, a.CWEIDs)
	assert.Equal(t, SeverityInfo, a.Complexity)
	assert.Equal(t, "original description", a.Description)

	// nil合并无副作用
	a.Merge(nil)
	assert.Equal(t, 3, a.Instances)
}

func TestAlertMapAdd(t *testing.T) {
	m := make(AlertMap)
	m.Add(&Alert{Title: "Finding", Instances: 1, Evidence: []string{"e1"}})
	m.Add(&Alert{Title: "Finding", Instances: 1, Evidence: []string{"e2"}})
	m.Add(&Alert{Title: "Other", Instances: 1})
	m.Add(nil)
	m.Add(&Alert{Title: ""})

	require.Len(t, m, 2)
	assert.Equal(t, 2, m["Finding"].Instances)
	assert.Equal(t, []string{"e1", "e2"}, m["Finding"].Evidence)
}

func TestAlertMapSortedAlerts(t *testing.T) {
	m := make(AlertMap)
	m.Add(&Alert{Title: "b-info", Complexity: SeverityInfo, AlertOrder: SeverityRank(SeverityInfo), Instances: 1})
	m.Add(&Alert{Title: "critical", Complexity: SeverityCritical, AlertOrder: SeverityRank(SeverityCritical), Instances: 1})
	m.Add(&Alert{Title: "a-info", Complexity: SeverityInfo, AlertOrder: SeverityRank(SeverityInfo), Instances: 1})

	sorted := m.SortedAlerts()
	require.Len(t, sorted, 3)
	assert.Equal(t, "critical", sorted[0].Title)
	// 同权重按标题排序
	assert.Equal(t, "a-info", sorted[1].Title)
	assert.Equal(t, "b-info", sorted[2].Title)
}

func TestAlertMapEncodeDecode(t *testing.T) {
	m := make(AlertMap)
	m.Add(&Alert{
		Title:      "Finding",
		Complexity: SeverityHigh,
		AlertOrder: SeverityRank(SeverityHigh),
		Instances:  2,
		Evidence:   []string{"evidence"},
		AlertJSON:  map[string]interface{}{"port": "443/tcp"},
		Generator:  GeneratorCve,
	})

	encoded, err := m.Encode()
	require.NoError(t, err)

	decoded, err := DecodeAlertMap(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, 2, decoded["Finding"].Instances)
	assert.Equal(t, GeneratorCve, decoded["Finding"].Generator)
}

func TestDecodeAlertMapEmptyAndCorrupt(t *testing.T) {
	m, err := DecodeAlertMap("")
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = DecodeAlertMap("{not json")
	assert.Error(t, err)
}
