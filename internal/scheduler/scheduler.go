package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")

type Kind string

const (
	KindDue      Kind = "due"
	KindReminder Kind = "reminder"
)

// Notice is the payload delivered when a timer fires.
type Notice struct {
	TaskID    string
	Kind      Kind
	Title     string
	Body      string
	Sound     bool
	TriggerAt time.Time
}

type timerKey struct {
	taskID string
	kind   Kind
}

type queueItem struct {
	notice Notice
	gen    uint64
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].notice.TriggerAt.Before(pq[j].notice.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Scheduler owns the timer table: at most one armed timer per (task, kind)
// pair. Arming a key supersedes any earlier arm for the same key, and a
// cancelled key never fires. Entries queued under a stale generation are
// discarded lazily when they surface.
type Scheduler struct {
	mu      sync.Mutex
	queue   priorityQueue
	armed   map[timerKey]uint64
	gen     uint64
	out     chan Notice
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func New(bufferSize int) *Scheduler {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Scheduler{
		queue:  make(priorityQueue, 0),
		armed:  make(map[timerKey]uint64),
		out:    make(chan Notice, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *Scheduler) C() <-chan Notice {
	return s.out
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	heap.Init(&s.queue)
	go s.loop()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()
	<-s.doneCh
}

// Arm schedules a one-shot timer for the notice's (task, kind) key. A prior
// arm for the same key is superseded, never fired.
func (s *Scheduler) Arm(n Notice) error {
	if n.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("scheduler: stopped")
	}

	s.gen++
	key := timerKey{taskID: n.TaskID, kind: n.Kind}
	s.armed[key] = s.gen
	heap.Push(&s.queue, queueItem{notice: n, gen: s.gen})
	s.signalWakeup()
	return nil
}

// Cancel disarms the timer for one (task, kind) key. Cancelling one kind
// never touches the other kind of the same task.
func (s *Scheduler) Cancel(taskID string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, timerKey{taskID: taskID, kind: kind})
	s.signalWakeup()
}

// CancelTask disarms both the due and reminder timers of a task.
func (s *Scheduler) CancelTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, timerKey{taskID: taskID, kind: KindDue})
	delete(s.armed, timerKey{taskID: taskID, kind: KindReminder})
	s.signalWakeup()
}

// CancelAll disarms every timer. Used by the full reschedule pass.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = make(map[timerKey]uint64)
	s.signalWakeup()
}

// Armed reports whether the (task, kind) key currently has a live timer.
func (s *Scheduler) Armed(taskID string, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[timerKey{taskID: taskID, kind: kind}]
	return ok
}

func (s *Scheduler) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)
	defer close(s.out)

	var timer *time.Timer
	for {
		next, hasNext := s.peek()
		if !hasNext {
			select {
			case <-s.wakeup:
				continue
			case <-s.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := s.popDue(time.Now().UTC())
			for _, n := range due {
				select {
				case s.out <- n:
				default:
					atomic.AddUint64(&s.dropped, 1)
				}
			}
		case <-s.wakeup:
			continue
		case <-s.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (s *Scheduler) signalWakeup() {
	select {
	case s.wakeup <- struct{}{}:
	default:
	}
}

// peek returns the earliest live queue entry, pruning superseded and
// cancelled entries as they surface at the head.
func (s *Scheduler) peek() (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		head := s.queue[0]
		if s.live(head) {
			return head.notice, true
		}
		heap.Pop(&s.queue)
	}
	return Notice{}, false
}

// popDue drains every live entry whose trigger time has passed. Each fired
// key is disarmed so a single arm cycle fires at most once.
func (s *Scheduler) popDue(now time.Time) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notice, 0)
	for len(s.queue) > 0 {
		head := s.queue[0]
		if !s.live(head) {
			heap.Pop(&s.queue)
			continue
		}
		if head.notice.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&s.queue).(queueItem)
		key := timerKey{taskID: item.notice.TaskID, kind: item.notice.Kind}
		delete(s.armed, key)
		out = append(out, item.notice)
	}
	return out
}

func (s *Scheduler) live(item queueItem) bool {
	key := timerKey{taskID: item.notice.TaskID, kind: item.notice.Kind}
	gen, ok := s.armed[key]
	return ok && gen == item.gen
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
