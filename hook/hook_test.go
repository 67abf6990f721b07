package hook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/phf/hook"
)

func double(ctx context.Context, item any) (any, error) {
	return item.(int) * 2, nil
}

func runHook(t *testing.T, h *hook.Hook) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	return cancel, done
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		action  hook.Action
		wantErr error
	}{
		{name: "with action", action: double},
		{name: "nil action", action: nil, wantErr: hook.ErrNoAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := hook.New(tt.name, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, h.Name())
			assert.NotEqual(t, h.ID().String(), "")
		})
	}
}

func TestHook_QueueIdentity(t *testing.T) {
	h, err := hook.New("double", double)
	require.NoError(t, err)

	assert.Same(t, h.Inbound(), h.Inbound())
	assert.Same(t, h.Outbound(), h.Outbound())
	assert.NotSame(t, h.Inbound(), h.Outbound())
}

func TestHook_Aliases(t *testing.T) {
	h, err := hook.New("double", double, hook.WithAliases("x2", "twice"))
	require.NoError(t, err)

	aliases := h.Aliases()
	assert.Equal(t, []string{"x2", "twice"}, aliases)

	aliases[0] = "mutated"
	assert.Equal(t, "x2", h.Aliases()[0])
}

func TestHook_RunFIFO(t *testing.T) {
	h, err := hook.New("double", double)
	require.NoError(t, err)

	for i := range 10 {
		h.Inbound().Put(i)
	}
	runHook(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := range 10 {
		got, err := h.Outbound().Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, i*2, got)
	}
	assert.Eventually(t, func() bool { return h.Processed() == 10 }, time.Second, time.Millisecond)
}

func TestHook_CancelIsOrderly(t *testing.T) {
	h, err := hook.New("double", double)
	require.NoError(t, err)

	cancel, done := runHook(t, h)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("hook did not stop on cancellation")
	}
}

func TestHook_CancelSkipsBacklog(t *testing.T) {
	h, err := hook.New("double", double)
	require.NoError(t, err)
	for i := range 1000 {
		h.Inbound().Put(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.Run(ctx), context.Canceled)
	assert.Zero(t, h.Processed())
	assert.Equal(t, 999, h.Inbound().Len())
}

func TestHook_ActionErrorStopsOnlyThatHook(t *testing.T) {
	errBad := errors.New("bad item")
	failing, err := hook.New("failing", func(ctx context.Context, item any) (any, error) {
		if item.(int) < 0 {
			return nil, errBad
		}
		return item, nil
	})
	require.NoError(t, err)
	healthy, err := hook.New("healthy", double)
	require.NoError(t, err)

	_, failDone := runHook(t, failing)
	_, healthyDone := runHook(t, healthy)

	failing.Inbound().Put(-1)
	failing.Inbound().Put(1)

	select {
	case err := <-failDone:
		assert.ErrorIs(t, err, errBad)
		assert.Contains(t, err.Error(), "failing")
	case <-time.After(time.Second):
		t.Fatal("failing hook did not stop")
	}
	assert.Equal(t, 1, failing.Inbound().Len(), "items after the failure stay queued")

	healthy.Inbound().Put(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := healthy.Outbound().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	select {
	case <-healthyDone:
		t.Fatal("healthy hook stopped")
	default:
	}
}
