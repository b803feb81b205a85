package queue

import (
	"sort"
	"time"
)

// Stats counts queue items by status.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Syncing int `json:"syncing"`
	Failed  int `json:"failed"`
}

// Less orders items by priority descending, then createdAt ascending.
// The id breaks exact ties so the order is total.
func Less(a, b *QueueItem) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Sort orders items in place with Less.
func Sort(items []QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(&items[i], &items[j])
	})
}

// Queue is the in-memory, always-sorted set of queue items.
// It is not safe for concurrent use; the engine serializes access.
type Queue struct {
	items []*QueueItem
	index map[string]*QueueItem
}

// New builds a queue from items, sorting them.
func New(items []QueueItem) *Queue {
	q := &Queue{
		items: make([]*QueueItem, 0, len(items)),
		index: make(map[string]*QueueItem, len(items)),
	}
	for i := range items {
		item := items[i].Clone()
		q.items = append(q.items, &item)
		q.index[item.ID] = &item
	}
	q.Resort()
	return q
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	return len(q.items)
}

// Insert adds item at its sorted position.
func (q *Queue) Insert(item QueueItem) {
	stored := item.Clone()
	pos := sort.Search(len(q.items), func(i int) bool {
		return Less(&stored, q.items[i])
	})
	q.items = append(q.items, nil)
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = &stored
	q.index[stored.ID] = &stored
}

// Get returns the live item with id. Callers mutating it must call Resort
// if they change Priority or CreatedAt.
func (q *Queue) Get(id string) (*QueueItem, bool) {
	item, ok := q.index[id]
	return item, ok
}

// Remove deletes the item with id.
func (q *Queue) Remove(id string) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}
	delete(q.index, id)
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
	return true
}

// RemoveWhere deletes every item matching fn and returns the removed ids.
func (q *Queue) RemoveWhere(fn func(*QueueItem) bool) []string {
	var removed []string
	kept := q.items[:0]
	for _, item := range q.items {
		if fn(item) {
			removed = append(removed, item.ID)
			delete(q.index, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
	return removed
}

// Resort restores the sort invariant after in-place edits.
func (q *Queue) Resort() {
	sort.SliceStable(q.items, func(i, j int) bool {
		return Less(q.items[i], q.items[j])
	})
}

// All returns a deep-copied snapshot in queue order.
func (q *Queue) All() []QueueItem {
	out := make([]QueueItem, len(q.items))
	for i, item := range q.items {
		out[i] = item.Clone()
	}
	return out
}

// Pending returns items whose status is pending or failed, in queue order.
func (q *Queue) Pending() []QueueItem {
	var out []QueueItem
	for _, item := range q.items {
		if item.Status == StatusPending || item.Status == StatusFailed {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Due returns up to limit live items a drain at now may attempt, in queue
// order. A non-positive limit means no limit.
func (q *Queue) Due(now time.Time, limit int) []*QueueItem {
	var out []*QueueItem
	for _, item := range q.items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if item.Eligible(now) {
			out = append(out, item)
		}
	}
	return out
}

// Stats counts items by status.
func (q *Queue) Stats() Stats {
	s := Stats{Total: len(q.items)}
	for _, item := range q.items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusSyncing:
			s.Syncing++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
