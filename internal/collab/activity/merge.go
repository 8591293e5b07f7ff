package activity

import (
	"container/heap"
	"sort"

	"collabcore/internal/collab/model"
)

// Before reports whether a sorts ahead of b in the feed:
// newer timestamp first, then larger id.
func Before(a, b *model.ActivityEvent) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

type cursorHeap struct {
	lists [][]*model.ActivityEvent
	pos   []int
	order []int // indexes into lists, heap-ordered by current head
}

func (h *cursorHeap) Len() int { return len(h.order) }

func (h *cursorHeap) Less(i, j int) bool {
	a := h.lists[h.order[i]][h.pos[h.order[i]]]
	b := h.lists[h.order[j]][h.pos[h.order[j]]]
	return Before(a, b)
}

func (h *cursorHeap) Swap(i, j int) { h.order[i], h.order[j] = h.order[j], h.order[i] }

func (h *cursorHeap) Push(x any) { h.order = append(h.order, x.(int)) }

func (h *cursorHeap) Pop() any {
	old := h.order
	n := len(old)
	x := old[n-1]
	h.order = old[:n-1]
	return x
}

// Merge combines independently sorted event lists into one feed-ordered list.
// Lists not already in feed order are sorted first. Duplicate ids are dropped.
func Merge(lists ...[]*model.ActivityEvent) []*model.ActivityEvent {
	h := &cursorHeap{lists: lists, pos: make([]int, len(lists))}
	total := 0
	for i, list := range lists {
		if len(list) == 0 {
			continue
		}
		if !sort.SliceIsSorted(list, func(a, b int) bool { return Before(list[a], list[b]) }) {
			sort.SliceStable(list, func(a, b int) bool { return Before(list[a], list[b]) })
		}
		total += len(list)
		h.order = append(h.order, i)
	}
	heap.Init(h)

	merged := make([]*model.ActivityEvent, 0, total)
	seen := make(map[string]struct{}, total)
	for h.Len() > 0 {
		i := h.order[0]
		event := h.lists[i][h.pos[i]]
		if _, dup := seen[event.ID]; !dup {
			seen[event.ID] = struct{}{}
			merged = append(merged, event)
		}

		h.pos[i]++
		if h.pos[i] < len(h.lists[i]) {
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
		}
	}
	return merged
}
