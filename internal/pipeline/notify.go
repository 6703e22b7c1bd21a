package pipeline

import (
	"context"
	"sync"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

// History keeps a bounded record of completed archives, newest first. It
// implements Notifier and backs the service's /stats endpoint.
type History struct {
	mu      sync.Mutex
	results []domain.ArchiveResult
	total   int
	limit   int
}

// NewHistory creates a History retaining up to limit results.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{limit: limit}
}

func (h *History) Notify(_ context.Context, result domain.ArchiveResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total++
	h.results = append([]domain.ArchiveResult{result}, h.results...)
	if len(h.results) > h.limit {
		h.results = h.results[:h.limit]
	}
	return nil
}

// Recent returns the retained results, newest first, and the total count of
// conversions since startup.
func (h *History) Recent() ([]domain.ArchiveResult, int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]domain.ArchiveResult, len(h.results))
	copy(out, h.results)
	return out, h.total
}

// MultiNotifier fans one result out to several notifiers. The first error
// is returned after all notifiers have run.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, result domain.ArchiveResult) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, result); err != nil && first == nil {
			first = err
		}
	}
	return first
}
