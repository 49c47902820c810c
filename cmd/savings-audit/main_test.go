package main

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const waitTimeout = 5 * time.Second

type countingHandler struct {
	target int32
	n      atomic.Int32
	done   chan struct{}
	err    error
}

func newCountingHandler(target int32) *countingHandler {
	return &countingHandler{target: target, done: make(chan struct{})}
}

func (h *countingHandler) HandleExecution(context.Context, *state.AppExecResult) error {
	if h.n.Add(1) == h.target {
		close(h.done)
	}
	return h.err
}

// blockingReconciler does not return until released, like a reconciliation
// waiting for RPC responses stuck behind undelivered notifications.
type blockingReconciler struct {
	release <-chan struct{}

	startOnce, finishOnce sync.Once
	started, finished     chan struct{}
}

func (r *blockingReconciler) Reconcile(ctx context.Context, _ audit.BalanceReader, _ []string) ([]audit.Mismatch, error) {
	r.startOnce.Do(func() { close(r.started) })

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}

	r.finishOnce.Do(func() { close(r.finished) })

	return nil, nil
}

type zeroReader struct{}

func (zeroReader) CheckUserBalance(util.Uint160) (*big.Int, error) { return new(big.Int), nil }

func wait(t *testing.T, ch <-chan struct{}, msg string) {
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatal(msg)
	}
}

func TestServe_ExecutionsDuringReconciliation(t *testing.T) {
	const executions = 3

	h := newCountingHandler(executions)
	rec := &blockingReconciler{
		release:  h.done,
		started:  make(chan struct{}),
		finished: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan *state.AppExecResult)
	errCh := make(chan error, 1)

	go func() {
		errCh <- serve(ctx, zaptest.NewLogger(t), h, ch, rec, zeroReader{}, time.Millisecond)
	}()

	wait(t, rec.started, "reconciliation was not started")

	for i := 0; i < executions; i++ {
		select {
		case ch <- &state.AppExecResult{Container: util.Uint256{byte(i)}}:
		case <-time.After(waitTimeout):
			t.Fatalf("execution #%d is not accepted while reconciliation is running", i)
		}
	}

	wait(t, rec.finished, "reconciliation was not finished")
	require.EqualValues(t, executions, h.n.Load())

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		t.Fatal("serve was not stopped")
	}
}

func TestServe_Stop(t *testing.T) {
	t.Run("closed subscription", func(t *testing.T) {
		ch := make(chan *state.AppExecResult)
		close(ch)

		err := serve(context.Background(), zaptest.NewLogger(t), newCountingHandler(1), ch, nil, nil, 0)
		require.Error(t, err)
		require.NotErrorIs(t, err, context.Canceled)
	})

	t.Run("handler failure", func(t *testing.T) {
		h := newCountingHandler(1)
		h.err = errors.New("store is down")

		ch := make(chan *state.AppExecResult, 1)
		ch <- &state.AppExecResult{}

		err := serve(context.Background(), zaptest.NewLogger(t), h, ch, nil, nil, 0)
		require.ErrorIs(t, err, h.err)
	})
}
