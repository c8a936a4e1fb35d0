// Package ratelimit caps how many AI requests one run may spend.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/deusflow/newsdigest/internal/logger"
)

// ErrBudgetExhausted is returned by Use once the run has spent its requests.
var ErrBudgetExhausted = errors.New("AI request budget exhausted")

// Budget counts AI requests per service against a total limit. A limit of
// zero means unlimited.
type Budget struct {
	mu       sync.Mutex
	max      int
	total    int
	counts   map[string]int
	rejected int
}

// NewBudget creates a budget allowing max requests in total.
func NewBudget(max int) *Budget {
	return &Budget{
		max:    max,
		counts: make(map[string]int),
	}
}

// Allow reports whether another request fits without spending it.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max <= 0 || b.total < b.max
}

// Use spends one request for service.
func (b *Budget) Use(service string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.total >= b.max {
		b.rejected++
		logger.Warn("AI request budget reached", "service", service, "used", b.total, "limit", b.max)
		return fmt.Errorf("%w (%d/%d)", ErrBudgetExhausted, b.total, b.max)
	}

	b.counts[service]++
	b.total++
	logger.Debug("AI usage", "service", service, "service_used", b.counts[service], "total", b.total, "limit", b.max)
	return nil
}

// Remaining returns the requests left, or -1 when unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		return -1
	}
	return b.max - b.total
}

// GetStats returns current budget statistics
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	perService := make(map[string]int, len(b.counts))
	for k, v := range b.counts {
		perService[k] = v
	}
	return map[string]interface{}{
		"total_used":  b.total,
		"total_limit": b.max,
		"rejected":    b.rejected,
		"per_service": perService,
	}
}

// PrintStats logs current statistics
func (b *Budget) PrintStats() {
	stats := b.GetStats()
	logger.Info("AI budget statistics",
		"used", stats["total_used"],
		"limit", stats["total_limit"],
		"remaining", b.Remaining(),
		"rejected", stats["rejected"],
		"per_service", stats["per_service"])
}
