package sim

import "container/heap"

// Event is anything that can be placed on the scheduler. Concrete event
// types are defined by the components that handle them; the driver
// type-switches on them when popped.
type Event interface {
	ScheduledAt() Time
}

// Scheduler is the global time-ordered queue of pending events.
//
// Events with equal scheduled time are ordered by insertion sequence, a
// monotonically increasing counter assigned when the event is scheduled.
// This makes runs with simultaneous events reproducible. A cancelled and
// re-scheduled event receives a new sequence number.
//
// The scheduler is not safe for concurrent use; the simulation is
// single-threaded and one event is fully processed before the next is
// popped.
type Scheduler struct {
	items   eventHeap
	pending map[Event]*eventItem
	seq     uint64
}

type eventItem struct {
	ev    Event
	at    Time
	seq   uint64
	index int
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[Event]*eventItem)}
}

// Len reports the number of pending events.
func (s *Scheduler) Len() int { return len(s.items) }

// Schedule inserts the event, ordered by its scheduled time. Scheduling the
// same event instance twice is a programming defect.
func (s *Scheduler) Schedule(ev Event) {
	if _, ok := s.pending[ev]; ok {
		panic("sim: event scheduled twice")
	}
	s.seq++
	it := &eventItem{ev: ev, at: ev.ScheduledAt(), seq: s.seq}
	s.pending[ev] = it
	heap.Push(&s.items, it)
}

// Cancel removes a not-yet-fired event, identified by instance. It reports
// whether the event was pending.
func (s *Scheduler) Cancel(ev Event) bool {
	it, ok := s.pending[ev]
	if !ok {
		return false
	}
	delete(s.pending, ev)
	heap.Remove(&s.items, it.index)
	return true
}

// Pop returns and removes the event with the smallest scheduled time. The
// second return value is false when the queue is empty.
func (s *Scheduler) Pop() (Event, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	it := heap.Pop(&s.items).(*eventItem)
	delete(s.pending, it.ev)
	return it.ev, true
}

type eventHeap []*eventItem

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	it := x.(*eventItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
