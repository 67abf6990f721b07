package provider_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/messaging"
	"github.com/tailored-agentic-units/phf/provider"
	"github.com/tailored-agentic-units/phf/scheduler"
)

func createTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(context.Background(), scheduler.Config{Name: "provider-test"})
	t.Cleanup(func() { s.Shutdown(time.Second) })
	return s
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newHook(t *testing.T, name string, fn func(int) int) *hook.Hook {
	t.Helper()
	h, err := hook.New(name, func(ctx context.Context, item any) (any, error) {
		return fn(item.(int)), nil
	})
	require.NoError(t, err)
	return h
}

func identity(n int) int { return n }
func double(n int) int   { return n * 2 }
func square(n int) int   { return n * n }

// counter yields 0, 1, 2, ... on successive calls.
func counter() provider.SourceFunc {
	var next atomic.Int64
	return func(ctx context.Context) (any, error) {
		return int(next.Add(1) - 1), nil
	}
}

func constant(v int) provider.SourceFunc {
	return func(ctx context.Context) (any, error) {
		return v, nil
	}
}

// collector forwards every aggregated result list to a channel.
func collector() (provider.ResultCallback, <-chan []any) {
	ch := make(chan []any, 64)
	return func(ctx context.Context, results []any) error {
		select {
		case ch <- results:
		default:
		}
		return nil
	}, ch
}

func receive(t *testing.T, ch <-chan []any) []any {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no aggregated result")
		return nil
	}
}

func repeat(v, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func waitStopped(t *testing.T, p provider.Provider) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("provider %s did not stop", p.Name())
	}
}

func TestProviders_IdentityHooksAggregateInOrder(t *testing.T) {
	type factory func(t *testing.T, cb provider.ResultCallback) (provider.Provider, func(ctx context.Context, v int) []any)

	disciplines := map[string]factory{
		"periodic": func(t *testing.T, cb provider.ResultCallback) (provider.Provider, func(context.Context, int) []any) {
			p, err := provider.NewPeriodic(counter(), provider.WithPeriod(time.Millisecond), provider.WithResultCallback(cb))
			require.NoError(t, err)
			return p, nil
		},
		"blocking": func(t *testing.T, cb provider.ResultCallback) (provider.Provider, func(context.Context, int) []any) {
			p, err := provider.NewBlocking(counter(), provider.WithResultCallback(cb))
			require.NoError(t, err)
			return p, nil
		},
		"complex": func(t *testing.T, cb provider.ResultCallback) (provider.Provider, func(context.Context, int) []any) {
			p, err := provider.NewComplex(provider.WithResultCallback(cb))
			require.NoError(t, err)
			return p, func(ctx context.Context, v int) []any {
				answer, err := p.MessageSystem().SendWaitAnswer(ctx, v)
				require.NoError(t, err)
				return answer.([]any)
			}
		},
	}

	for name, create := range disciplines {
		for _, n := range []int{0, 1, 2} {
			t.Run(fmt.Sprintf("%s/%d hooks", name, n), func(t *testing.T) {
				cb, results := collector()
				p, send := create(t, cb)
				for i := range n {
					p.AddHook(newHook(t, fmt.Sprintf("identity-%d", i), identity))
				}

				require.NoError(t, p.Start(createTestScheduler(t)))
				defer p.Stop()

				ctx := testContext(t)
				for v := range 3 {
					if send != nil {
						assert.Equal(t, repeat(v, n), send(ctx, v))
					}
					assert.Equal(t, repeat(v, n), receive(t, results))
				}
			})
		}
	}
}

func TestPeriodic_DoubleHooks(t *testing.T) {
	cb, results := collector()
	p, err := provider.NewPeriodic(constant(5), provider.WithPeriod(time.Hour), provider.WithResultCallback(cb))
	require.NoError(t, err)

	p.AddHook(newHook(t, "double-a", double))
	p.AddHook(newHook(t, "double-b", double))

	require.NoError(t, p.Start(createTestScheduler(t)))
	assert.Equal(t, []any{10, 10}, receive(t, results))

	require.NoError(t, p.Stop())
	waitStopped(t, p)
	assert.NoError(t, p.Err())
	assert.Equal(t, int64(1), p.Cycles())
}

func TestPeriodic_ResultsAlignToRegistrationOrder(t *testing.T) {
	cb, results := collector()
	p, err := provider.NewPeriodic(constant(3), provider.WithPeriod(time.Hour), provider.WithResultCallback(cb))
	require.NoError(t, err)

	slow, err := hook.New("slow", func(ctx context.Context, item any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow", nil
	})
	require.NoError(t, err)
	p.AddHook(slow)
	p.AddHook(newHook(t, "square", square))

	require.NoError(t, p.Start(createTestScheduler(t)))
	defer p.Stop()

	assert.Equal(t, []any{"slow", 9}, receive(t, results))
}

func TestComplex_Square(t *testing.T) {
	first := func(ctx context.Context, results []any) (any, error) {
		return results[0], nil
	}
	p, err := provider.NewComplex(provider.WithPostprocess(first))
	require.NoError(t, err)
	p.AddHook(newHook(t, "square", square))

	ctx := testContext(t)

	// Sent before Start: buffered by the message system.
	id := p.MessageSystem().Send(3)

	require.NoError(t, p.Start(createTestScheduler(t)))
	defer p.Stop()

	answer, err := p.MessageSystem().SendWaitAnswer(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 49, answer)

	buffered, err := p.MessageSystem().RetrieveResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 9, buffered)
}

func TestComplex_Preprocess(t *testing.T) {
	inc := func(ctx context.Context, data any) (any, error) {
		return data.(int) + 1, nil
	}
	p, err := provider.NewComplex(provider.WithPreprocess(inc))
	require.NoError(t, err)
	p.AddHook(newHook(t, "double", double))

	require.NoError(t, p.Start(createTestScheduler(t)))
	defer p.Stop()

	answer, err := p.MessageSystem().SendWaitAnswer(testContext(t), 4)
	require.NoError(t, err)
	assert.Equal(t, []any{10}, answer)
}

func TestProvider_AddHookWhileRunning(t *testing.T) {
	p, err := provider.NewComplex()
	require.NoError(t, err)

	early := newHook(t, "early", identity)
	late := newHook(t, "late", double)
	p.AddHook(early)

	require.NoError(t, p.Start(createTestScheduler(t)))
	defer p.Stop()

	ctx := testContext(t)
	sys := p.MessageSystem()

	before, err := sys.SendWaitAnswer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{1}, before)

	p.AddHook(late)
	assert.Equal(t, []*hook.Hook{early, late}, p.Hooks())

	after, err := sys.SendWaitAnswer(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 4}, after)

	assert.Eventually(t, func() bool { return early.Processed() == 2 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return late.Processed() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(1), late.Processed(), "item broadcast before the add never reached the hook")
}

func TestProvider_AddHookFromForeignGoroutine(t *testing.T) {
	p, err := provider.NewComplex()
	require.NoError(t, err)
	require.NoError(t, p.Start(createTestScheduler(t)))
	defer p.Stop()

	added := make(chan struct{})
	go func() {
		p.AddHook(newHook(t, "foreign", square))
		close(added)
	}()
	<-added

	answer, err := p.MessageSystem().SendWaitAnswer(testContext(t), 6)
	require.NoError(t, err)
	assert.Equal(t, []any{36}, answer)
}

func TestProvider_StopStopsHooks(t *testing.T) {
	p, err := provider.NewPeriodic(constant(1), provider.WithPeriod(time.Hour))
	require.NoError(t, err)
	h := newHook(t, "identity", identity)
	p.AddHook(h)

	assert.ErrorIs(t, p.Stop(), provider.ErrNotRunning)
	assert.Nil(t, p.Done())

	sched := createTestScheduler(t)
	require.NoError(t, p.Start(sched))
	assert.ErrorIs(t, p.Start(sched), provider.ErrAlreadyRunning)
	assert.True(t, p.Running())

	assert.Eventually(t, func() bool { return h.Processed() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	waitStopped(t, p)
	assert.False(t, p.Running())
	assert.NoError(t, p.Err(), "cancellation is not a failure")

	// The hook task is gone: new items are no longer consumed.
	time.Sleep(10 * time.Millisecond)
	h.Inbound().Put(2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, h.Inbound().Len())
	assert.Equal(t, int64(1), h.Processed())
}

func TestProvider_StopDiscardsInFlightResults(t *testing.T) {
	entered := make(chan struct{}, 1)
	slow, err := hook.New("slow", func(ctx context.Context, item any) (any, error) {
		entered <- struct{}{}
		time.Sleep(30 * time.Millisecond) // ignores ctx on purpose
		return item, nil
	})
	require.NoError(t, err)

	cb, _ := collector()
	p, err := provider.NewPeriodic(constant(1), provider.WithPeriod(time.Hour), provider.WithResultCallback(cb))
	require.NoError(t, err)
	p.AddHook(slow)

	sched := createTestScheduler(t)
	require.NoError(t, p.Start(sched))

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("hook never received the item")
	}
	require.NoError(t, p.Stop())
	waitStopped(t, p)

	assert.Equal(t, int64(1), slow.Processed(), "stop waits for the hook to finish")
	assert.Zero(t, slow.Outbound().Len(), "the late result is discarded")
	assert.Zero(t, slow.Inbound().Len())
}

func TestProvider_RestartRewiresHooks(t *testing.T) {
	cb, results := collector()
	p, err := provider.NewPeriodic(counter(), provider.WithPeriod(time.Hour), provider.WithResultCallback(cb))
	require.NoError(t, err)
	p.AddHook(newHook(t, "identity", identity))

	sched := createTestScheduler(t)
	require.NoError(t, p.Start(sched))
	assert.Equal(t, []any{0}, receive(t, results))
	require.NoError(t, p.Stop())
	waitStopped(t, p)

	require.NoError(t, p.Start(sched))
	defer p.Stop()
	assert.Equal(t, []any{1}, receive(t, results))
}

func TestPeriodic_WithoutCallbackDiscardsResults(t *testing.T) {
	p, err := provider.NewPeriodic(counter(), provider.WithPeriod(time.Millisecond))
	require.NoError(t, err)
	h := newHook(t, "identity", identity)
	p.AddHook(h)

	require.NoError(t, p.Start(createTestScheduler(t)))
	assert.Eventually(t, func() bool { return p.Cycles() >= 10 }, 2*time.Second, time.Millisecond)
	require.NoError(t, p.Stop())
	waitStopped(t, p)

	assert.LessOrEqual(t, h.Outbound().Len(), 1)
}

func TestBlocking_WorkerErrorTerminatesProvider(t *testing.T) {
	errSource := errors.New("source unavailable")
	var calls atomic.Int64
	source := provider.SourceFunc(func(ctx context.Context) (any, error) {
		if calls.Add(1) > 2 {
			return nil, errSource
		}
		return 1, nil
	})

	cb, results := collector()
	p, err := provider.NewBlocking(source, provider.WithName("flaky"), provider.WithResultCallback(cb))
	require.NoError(t, err)
	h := newHook(t, "identity", identity)
	p.AddHook(h)

	require.NoError(t, p.Start(createTestScheduler(t)))
	assert.Equal(t, []any{1}, receive(t, results))
	assert.Equal(t, []any{1}, receive(t, results))

	waitStopped(t, p)
	assert.ErrorIs(t, p.Err(), errSource)
	assert.Contains(t, p.Err().Error(), "flaky")
	assert.False(t, p.Running())
	assert.ErrorIs(t, p.Stop(), provider.ErrNotRunning)
}

func TestBlocking_CallbackErrorTerminatesProvider(t *testing.T) {
	errCallback := errors.New("sink full")
	p, err := provider.NewBlocking(counter(), provider.WithResultCallback(func(ctx context.Context, results []any) error {
		return errCallback
	}))
	require.NoError(t, err)

	require.NoError(t, p.Start(createTestScheduler(t)))
	waitStopped(t, p)
	assert.ErrorIs(t, p.Err(), errCallback)
}

func TestBlocking_WithoutCallbackDiscardsResults(t *testing.T) {
	var next atomic.Int64
	source := provider.SourceFunc(func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return int(next.Add(1)), nil
	})

	p, err := provider.NewBlocking(source)
	require.NoError(t, err)
	h := newHook(t, "identity", identity)
	p.AddHook(h)

	require.NoError(t, p.Start(createTestScheduler(t)))
	assert.Eventually(t, func() bool { return p.Cycles() >= 10 && h.Processed() >= 5 }, 2*time.Second, time.Millisecond)

	// The worker acquires once per finished cycle.
	assert.LessOrEqual(t, next.Load()-p.Cycles(), int64(1))

	require.NoError(t, p.Stop())
	waitStopped(t, p)
	assert.NoError(t, p.Err())
	assert.LessOrEqual(t, h.Outbound().Len(), 1)
}

func TestBlocking_StopWithFastSource(t *testing.T) {
	p, err := provider.NewBlocking(constant(1))
	require.NoError(t, err)
	h, err := hook.New("slow", func(ctx context.Context, item any) (any, error) {
		time.Sleep(time.Millisecond)
		return item, nil
	})
	require.NoError(t, err)
	p.AddHook(h)

	require.NoError(t, p.Start(createTestScheduler(t)))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, p.Stop())
	waitStopped(t, p)
	assert.NoError(t, p.Err())
	assert.False(t, p.Running())

	cycles := p.Cycles()
	assert.Never(t, func() bool { return p.Cycles() != cycles }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestBlocking_NoCallbackAfterStop(t *testing.T) {
	var p *provider.Blocking
	h := newHook(t, "stopper", func(n int) int {
		if n == 3 {
			p.Stop()
		}
		return n
	})

	var late atomic.Bool
	var calls atomic.Int64
	p, err := provider.NewBlocking(counter(), provider.WithResultCallback(func(ctx context.Context, results []any) error {
		calls.Add(1)
		if results[0] == 3 || ctx.Err() != nil {
			late.Store(true)
		}
		return nil
	}))
	require.NoError(t, err)
	p.AddHook(h)

	require.NoError(t, p.Start(createTestScheduler(t)))
	waitStopped(t, p)
	assert.NoError(t, p.Err())

	assert.Never(t, late.Load, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int64(3), calls.Load())
}

func TestPeriodic_SourceErrorTerminatesProvider(t *testing.T) {
	errSource := errors.New("fetch failed")
	p, err := provider.NewPeriodic(provider.SourceFunc(func(ctx context.Context) (any, error) {
		return nil, errSource
	}))
	require.NoError(t, err)

	sibling, err := provider.NewPeriodic(constant(1), provider.WithPeriod(time.Millisecond))
	require.NoError(t, err)

	sched := createTestScheduler(t)
	require.NoError(t, p.Start(sched))
	require.NoError(t, sibling.Start(sched))
	defer sibling.Stop()

	waitStopped(t, p)
	assert.ErrorIs(t, p.Err(), errSource)
	assert.True(t, sibling.Running(), "a failed provider does not stop its siblings")
}

func TestComplex_StopWakesCallers(t *testing.T) {
	p, err := provider.NewComplex()
	require.NoError(t, err)

	stall, err := hook.New("stall", func(ctx context.Context, item any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)
	p.AddHook(stall)

	require.NoError(t, p.Start(createTestScheduler(t)))

	errs := make(chan error, 1)
	ctx := testContext(t)
	go func() {
		_, err := p.MessageSystem().SendWaitAnswer(ctx, 1)
		errs <- err
	}()

	assert.Eventually(t, func() bool { return stall.Inbound().Len() == 0 && len(p.MessageSystem().Pending()) == 1 },
		time.Second, time.Millisecond)
	require.NoError(t, p.Stop())
	waitStopped(t, p)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, messaging.ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("caller still waiting after provider stopped")
	}
}

func TestConstructors(t *testing.T) {
	_, err := provider.NewPeriodic(nil)
	assert.ErrorIs(t, err, provider.ErrNoSource)

	_, err = provider.NewBlocking(nil)
	assert.ErrorIs(t, err, provider.ErrNoSource)

	tests := []struct {
		name string
		p    func() (provider.Provider, error)
		kind provider.Kind
		want string
	}{
		{
			name: "periodic default name",
			p:    func() (provider.Provider, error) { return provider.NewPeriodic(constant(1)) },
			kind: provider.KindPeriodic,
			want: "periodic",
		},
		{
			name: "blocking named",
			p: func() (provider.Provider, error) {
				return provider.NewBlocking(constant(1), provider.WithName("feed"), provider.WithAliases("f"))
			},
			kind: provider.KindBlocking,
			want: "feed",
		},
		{
			name: "complex default name",
			p:    func() (provider.Provider, error) { return provider.NewComplex() },
			kind: provider.KindComplex,
			want: "complex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.p()
			require.NoError(t, err)
			assert.Equal(t, tt.kind, p.Kind())
			assert.Equal(t, tt.want, p.Name())
			assert.False(t, p.Running())
			assert.Empty(t, p.Hooks())
		})
	}

	p, err := provider.NewPeriodic(constant(1))
	require.NoError(t, err)
	assert.Equal(t, provider.DefaultPeriod, p.Period())
}
