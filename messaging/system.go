// Package messaging correlates requests from synchronous foreign callers with
// the answers a Complex provider produces for them.
//
// Any goroutine may Send data and later block in RetrieveResult for the
// answer. Messages sent before the owning scheduler initializes the system
// are buffered and delivered in send order once it does:
//
//	sys := messaging.New()
//	id := sys.Send(7)                         // buffered
//	requests, responses, _ := sys.Initialize(sched)
//	msg, _ := requests.Get(ctx)               // Message{ID: id, Data: 7}
//	responses.Put(messaging.Response{ID: msg.ID, Result: 49})
//	result, _ := sys.RetrieveResult(ctx, id)  // 49
package messaging

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/queue"
	"github.com/tailored-agentic-units/phf/scheduler"
)

type waiter struct {
	ready chan struct{}
	refs  int
}

// System is a goroutine-safe request/response correlator. One mutex guards
// the id counter, the result map and the waiter map.
type System struct {
	mu    sync.Mutex
	state State
	next  int64

	buffer    []Message
	requests  *queue.Queue[Message]
	responses *queue.Queue[Response]
	sched     *scheduler.Scheduler
	listener  *scheduler.Task

	results map[int64]any
	waiters map[int64]*waiter
	stopped chan struct{}

	logger   *slog.Logger
	observer observability.Observer
}

func New(opts ...Option) *System {
	s := &System{
		results:  make(map[int64]any),
		waiters:  make(map[int64]*waiter),
		stopped:  make(chan struct{}),
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *System) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize activates the system on sched. Buffered messages move to the
// returned request queue in send order, and a listener task starts storing
// responses put on the returned response queue. It fails with
// ErrAlreadyInitialized unless the system is uninitialized.
func (s *System) Initialize(sched *scheduler.Scheduler) (*queue.Queue[Message], *queue.Queue[Response], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return nil, nil, ErrAlreadyInitialized
	}

	requests := queue.New[Message]()
	responses := queue.New[Response]()
	for _, msg := range s.buffer {
		requests.Put(msg)
	}
	buffered := len(s.buffer)
	s.buffer = nil

	s.requests = requests
	s.responses = responses
	s.sched = sched
	s.state = StateActive
	s.listener = sched.Go("messaging.listener", func(ctx context.Context) error {
		return s.listen(ctx, responses)
	})

	observability.Emit(sched.Context(), s.observer, EventSystemStart, observability.LevelInfo, "messaging.Initialize",
		map[string]any{"buffered": buffered, "scheduler": sched.Name()})

	return requests, responses, nil
}

// Send assigns the next correlation id to data and hands it to the provider,
// or buffers it while the system is uninitialized. It never blocks.
func (s *System) Send(data any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{ID: s.next, Data: data}
	s.next++

	if s.state == StateUninitialized {
		s.buffer = append(s.buffer, msg)
	} else {
		requests := s.requests
		if err := s.sched.Submit(func() { requests.Put(msg) }); err != nil {
			requests.Put(msg)
		}
	}

	observability.Emit(context.Background(), s.observer, EventMessageSent, observability.LevelVerbose, "messaging.Send",
		map[string]any{"id": msg.ID, "state": s.state.String()})

	return msg.ID
}

// RetrieveResult returns the answer for id, waiting for it if it has not
// arrived yet. Once stored, a result is returned immediately on every call.
// It returns ctx.Err() when ctx ends first and ErrStopped when the system is
// stopped while waiting.
func (s *System) RetrieveResult(ctx context.Context, id int64) (any, error) {
	s.mu.Lock()
	if result, ok := s.results[id]; ok {
		s.mu.Unlock()
		return result, nil
	}
	w, ok := s.waiters[id]
	if !ok {
		w = &waiter{ready: make(chan struct{})}
		s.waiters[id] = w
	}
	w.refs++
	stopped := s.stopped
	s.mu.Unlock()

	select {
	case <-w.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		if result, ok := s.results[id]; ok {
			return result, nil
		}
		return nil, ErrStopped
	case <-stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		s.release(id, w)
		return nil, ctx.Err()
	}
}

// Result returns the stored answer for id without waiting.
func (s *System) Result(id int64) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[id]
	return result, ok
}

// SendWaitAnswer sends data and waits for its answer.
func (s *System) SendWaitAnswer(ctx context.Context, data any) (any, error) {
	return s.RetrieveResult(ctx, s.Send(data))
}

// Stop returns the system to the uninitialized state. The listener is
// cancelled, queues, buffered messages and stored results are discarded, and
// waiting callers return ErrStopped. Correlation ids keep counting from
// where they were, so an id is never issued twice.
func (s *System) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		s.listener.Cancel()
	}
	close(s.stopped)

	wasActive := s.state == StateActive
	s.state = StateUninitialized
	s.buffer = nil
	s.requests = nil
	s.responses = nil
	s.sched = nil
	s.listener = nil
	s.results = make(map[int64]any)
	s.waiters = make(map[int64]*waiter)
	s.stopped = make(chan struct{})

	if wasActive {
		observability.Emit(context.Background(), s.observer, EventSystemStop, observability.LevelInfo, "messaging.Stop", nil)
	}
}

// Pending returns the ids callers are currently waiting on, in ascending
// order.
func (s *System) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.waiters))
	for id := range s.waiters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Buffered reports how many messages await initialization.
func (s *System) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

func (s *System) listen(ctx context.Context, responses *queue.Queue[Response]) error {
	for {
		resp, err := responses.Get(ctx)
		if err != nil {
			return err
		}
		s.resolve(ctx, resp)
	}
}

func (s *System) resolve(ctx context.Context, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A listener cancelled by Stop must not write into the reset maps.
	if ctx.Err() != nil {
		return
	}

	if _, exists := s.results[resp.ID]; exists {
		s.logger.WarnContext(ctx, "duplicate response dropped",
			slog.Int64("id", resp.ID),
		)
		return
	}

	s.results[resp.ID] = resp.Result
	waiting := 0
	if w, ok := s.waiters[resp.ID]; ok {
		waiting = w.refs
		close(w.ready)
		delete(s.waiters, resp.ID)
	}

	observability.Emit(ctx, s.observer, EventMessageResolved, observability.LevelVerbose, "messaging.listen",
		map[string]any{"id": resp.ID, "waiters": waiting})
}

func (s *System) release(id int64, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.refs--
	if w.refs == 0 && s.waiters[id] == w {
		delete(s.waiters, id)
	}
}
