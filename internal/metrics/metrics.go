package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Collection counters
	RecordsCollected   int64
	SourceFailures     int64
	MalformedSkipped   int64
	TimeFiltered       int64
	ContentFiltered    int64
	DuplicatesFiltered int64
	UniqueArticles     int64

	// Analysis and delivery counters
	SummariesGenerated int64
	SummaryFailures    int64
	MessagesSent       int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

// New returns an empty, healthy metrics set.
func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) AddCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsCollected += int64(n)
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) IncrementMalformed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MalformedSkipped++
}

func (m *Metrics) AddTimeFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimeFiltered += int64(n)
}

func (m *Metrics) AddContentFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContentFiltered += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) SetUniqueArticles(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UniqueArticles = int64(n)
}

func (m *Metrics) IncrementSummariesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementSummaryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryFailures++
}

func (m *Metrics) IncrementMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSent++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"records_collected":          m.RecordsCollected,
		"source_failures":            m.SourceFailures,
		"malformed_skipped":          m.MalformedSkipped,
		"time_filtered":              m.TimeFiltered,
		"content_filtered":           m.ContentFiltered,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"unique_articles":            m.UniqueArticles,
		"summaries_generated":        m.SummariesGenerated,
		"summary_failures":           m.SummaryFailures,
		"messages_sent":              m.MessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
