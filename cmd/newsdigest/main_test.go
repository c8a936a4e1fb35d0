package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/storage"
	"github.com/deusflow/newsdigest/internal/summarize"
)

func testResult() *pipeline.Result {
	published := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	long := strings.Repeat("로밍 요금 인하 ", 20)
	return &pipeline.Result{
		Order: []string{"roaming", "empty"},
		Categories: map[string][]article.Record{
			"roaming": {
				{Title: long, Link: "https://news.example.com/1", Source: article.SourceDomesticNews, Published: &published},
				{Title: "Short", Link: "https://global.example.com/2", Source: article.SourceGlobalSearch},
			},
		},
		Unique: make([]article.Record, 2),
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, testResult(), map[string]string{"roaming": "Roaming"})
	out := buf.String()

	assert.Contains(t, out, "[roaming] Roaming (2)")
	assert.Contains(t, out, "[empty] empty (0)")
	assert.Contains(t, out, "…")
	assert.Contains(t, out, "06-01 09:30")
	assert.Contains(t, out, "Total: 2 listed, 2 unique")
	assert.NotContains(t, out, strings.Repeat("로밍 요금 인하 ", 20))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, testResult()))

	var decoded jsonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.UniqueCount)
	require.Len(t, decoded.Categories, 2)
	assert.Equal(t, "roaming", decoded.Categories[0].Key)
	assert.Len(t, decoded.Categories[0].Articles, 2)
	assert.NotNil(t, decoded.Categories[1].Articles)
}

func TestMonitoringEndpoints(t *testing.T) {
	srv := httptest.NewServer(monitoringMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Contains(t, stats, "unique_articles")

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, health.StatusCode)
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	writeHistory(&buf, nil)
	assert.Equal(t, "No archived runs\n", buf.String())

	run := storage.NewRunRecord(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	run.UniqueCount = 12
	run.Insight = &summarize.Insight{StrategicInsight: strings.Repeat("eSIM 수요 증가 ", 20)}

	buf.Reset()
	writeHistory(&buf, []*storage.RunRecord{run})
	out := buf.String()
	assert.Contains(t, out, "2024-06-01 09:00")
	assert.Contains(t, out, run.RunID[:8])
	assert.Contains(t, out, "  12  ")
	assert.Contains(t, out, "…")
}
