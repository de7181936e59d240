package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/dmitrijs2005/pocketlend/internal/logging"
	"github.com/robfig/cron/v3"
)

// Reconciler updates local records once the fate of a queued write is
// known. Errors are logged; they never put an operation back in the queue.
type Reconciler interface {
	Synced(ctx context.Context, op QueuedOperation, payload json.RawMessage) error
	Rejected(ctx context.Context, op QueuedOperation, err error) error
}

// Resolver rewrites a queued operation just before it is sent, e.g. to
// address an entity by the server id a previous replayed write assigned.
type Resolver interface {
	Resolve(ctx context.Context, op QueuedOperation) (transport.Operation, error)
}

// Connectivity is the part of the network monitor the replayer needs.
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// ReplayError is a queued write the server refused for good. It matches
// common.ErrSyncRejected and the underlying transport error.
type ReplayError struct {
	Sequence int64
	Op       transport.Operation
	Err      error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay #%d %s %s: %v", e.Sequence, e.Op.Method, e.Op.Path, e.Err)
}

func (e *ReplayError) Unwrap() []error {
	return []error{common.ErrSyncRejected, e.Err}
}

// Report lists the sequences settled by one replay pass. Operations that
// stay queued appear in neither list.
type Report struct {
	Succeeded []int64
	Failed    []int64
}

type ReplayerOption func(*Replayer)

func WithReconciler(r Reconciler) ReplayerOption {
	return func(rp *Replayer) { rp.reconcilers = append(rp.reconcilers, r) }
}

// WithMaxAttempts bounds retries of operations the server keeps failing
// with 5xx. Zero disables the bound.
func WithResolver(rs Resolver) ReplayerOption {
	return func(rp *Replayer) { rp.resolver = rs }
}

func WithMaxAttempts(n int) ReplayerOption {
	return func(rp *Replayer) { rp.maxAttempts = n }
}

func WithLogger(l logging.Logger) ReplayerOption {
	return func(rp *Replayer) { rp.log = l }
}

// Replayer drains the queue against the remote API.
type Replayer struct {
	q           *Queue
	doer        transport.Doer
	reconcilers []Reconciler
	resolver    Resolver
	maxAttempts int
	log         logging.Logger

	running atomic.Bool

	mu    sync.Mutex
	unsub func()
	cron  *cron.Cron
	wg    sync.WaitGroup
}

func NewReplayer(q *Queue, doer transport.Doer, opts ...ReplayerOption) *Replayer {
	r := &Replayer{q: q, doer: doer, log: logging.Nop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Replay re-issues queued operations in sequence order. It stops at the
// first network-class failure and leaves that operation and everything
// after it queued. A 4xx answer settles the operation as failed and replay
// moves on. Only one pass runs at a time; a concurrent call returns
// common.ErrReplayInProgress.
func (r *Replayer) Replay(ctx context.Context) (Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Report{}, common.ErrReplayInProgress
	}
	defer r.running.Store(false)

	rep := Report{Succeeded: []int64{}, Failed: []int64{}}

	ops, err := r.q.ListPending(ctx)
	if err != nil {
		return rep, err
	}
	if len(ops) == 0 {
		return rep, nil
	}
	r.log.Info(ctx, "replay started", "pending", len(ops))

	for _, op := range ops {
		send := op.Op
		if r.resolver != nil {
			if send, err = r.resolver.Resolve(ctx, op); err != nil {
				return rep, fmt.Errorf("resolve queued write %d: %w", op.Sequence, err)
			}
		}
		resp, err := r.doer.Do(ctx, send)
		if err == nil {
			if err := r.q.Remove(ctx, op.Sequence); err != nil {
				return rep, err
			}
			replayedTotal.WithLabelValues(resultSynced).Inc()
			r.synced(ctx, op, resp.Data)
			rep.Succeeded = append(rep.Succeeded, op.Sequence)
			continue
		}

		if transport.IsRejection(err) {
			if err := r.reject(ctx, op, err); err != nil {
				return rep, err
			}
			rep.Failed = append(rep.Failed, op.Sequence)
			continue
		}

		attempts, merr := r.q.MarkAttempt(ctx, op.Sequence, err.Error())
		if merr != nil {
			return rep, merr
		}
		if transport.IsApplicationError(err) && r.maxAttempts > 0 && attempts >= r.maxAttempts {
			if err := r.reject(ctx, op, err); err != nil {
				return rep, err
			}
			rep.Failed = append(rep.Failed, op.Sequence)
			continue
		}

		replayedTotal.WithLabelValues(resultRetry).Inc()
		r.log.Warn(ctx, "replay halted", "sequence", op.Sequence, "attempts", attempts, "error", err)
		break
	}

	r.log.Info(ctx, "replay finished", "succeeded", len(rep.Succeeded), "failed", len(rep.Failed))
	return rep, nil
}

func (r *Replayer) synced(ctx context.Context, op QueuedOperation, payload json.RawMessage) {
	for _, rc := range r.reconcilers {
		if err := rc.Synced(ctx, op, payload); err != nil {
			r.log.Error(ctx, "reconcile synced write", "sequence", op.Sequence, "error", err)
		}
	}
}

func (r *Replayer) reject(ctx context.Context, op QueuedOperation, cause error) error {
	if err := r.q.Remove(ctx, op.Sequence); err != nil {
		return err
	}
	replayedTotal.WithLabelValues(resultRejected).Inc()

	rerr := &ReplayError{Sequence: op.Sequence, Op: op.Op, Err: cause}
	r.log.Warn(ctx, "queued write rejected", "sequence", op.Sequence, "error", cause)
	for _, rc := range r.reconcilers {
		if err := rc.Rejected(ctx, op, rerr); err != nil {
			r.log.Error(ctx, "reconcile rejected write", "sequence", op.Sequence, "error", err)
		}
	}
	return nil
}

// trigger runs a pass and logs its outcome.
func (r *Replayer) trigger(ctx context.Context) {
	if _, err := r.Replay(ctx); err != nil {
		if errors.Is(err, common.ErrReplayInProgress) {
			r.log.Debug(ctx, "replay skipped", "reason", err)
			return
		}
		r.log.Error(ctx, "replay failed", "error", err)
	}
}

// Attach starts a replay pass in the background every time net goes from
// offline to online.
func (r *Replayer) Attach(ctx context.Context, net Connectivity) {
	unsub := net.Subscribe(func(online bool) {
		if !online {
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.trigger(ctx)
		}()
	})

	r.mu.Lock()
	if r.unsub != nil {
		r.unsub()
	}
	r.unsub = unsub
	r.mu.Unlock()
}

// StartSweep schedules a replay pass on a cron spec (e.g. "@every 30s")
// that only runs while net reports online. It catches writes left behind
// when a transition-triggered pass was halted.
func (r *Replayer) StartSweep(ctx context.Context, spec string, net Connectivity) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if net.IsOnline() {
			r.trigger(ctx)
		}
	}); err != nil {
		return fmt.Errorf("schedule replay sweep %q: %w", spec, err)
	}

	r.mu.Lock()
	if r.cron != nil {
		r.cron.Stop()
	}
	r.cron = c
	r.mu.Unlock()

	c.Start()
	return nil
}

// Stop detaches from the monitor, stops the sweep and waits for running
// passes to finish.
func (r *Replayer) Stop() {
	r.mu.Lock()
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
	var done context.Context
	if r.cron != nil {
		done = r.cron.Stop()
		r.cron = nil
	}
	r.mu.Unlock()

	if done != nil {
		<-done.Done()
	}
	r.wg.Wait()
}
