package scheduler

import "github.com/david/grant-ingest/internal/model"

// jobHeap orders pending jobs by descending priority, then ascending
// scheduledAt for ties (spec.md §5's FIFO-within-priority guarantee).
type jobHeap []*model.Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].ScheduledAt.Before(h[j].ScheduledAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(*model.Job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
