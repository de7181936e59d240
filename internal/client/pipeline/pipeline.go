// Package pipeline decides, per call, whether a logical HTTP operation is
// answered from the network, from the local response cache, or deferred to
// the write queue.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/cache"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/logging"
)

// Policy selects the offline behaviour of one call.
type Policy struct {
	// CacheReads serves GETs from the last cached response when the
	// network is unavailable.
	CacheReads bool
	// QueueOfflineWrites defers writes to the queue when the network is
	// unavailable.
	QueueOfflineWrites bool
	// Defer enqueues a write even while online. Used for writes that must
	// not overtake earlier queued writes to the same entity.
	Defer bool
}

type Kind int

const (
	// Delivered carries a payload from the network or the cache.
	Delivered Kind = iota
	// Queued means the write was deferred; Sequence identifies it.
	Queued
)

func (k Kind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Queued:
		return "queued"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the non-error result of Execute. Failures are returned as
// errors instead.
type Outcome struct {
	Kind     Kind
	Payload  Payload
	Sequence int64
	// Stale is set when Payload came from the cache, or is an empty
	// placeholder because nothing was cached yet.
	Stale bool
}

func (o Outcome) IsQueued() bool { return o.Kind == Queued }

// Connectivity reports the last known network state.
type Connectivity interface {
	IsOnline() bool
}

// Enqueuer accepts deferred writes.
type Enqueuer interface {
	Enqueue(ctx context.Context, op transport.Operation) (int64, error)
}

type Option func(*Pipeline)

func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

type Pipeline struct {
	doer  transport.Doer
	net   Connectivity
	cache cache.Repository
	queue Enqueuer
	log   logging.Logger
}

func New(doer transport.Doer, net Connectivity, c cache.Repository, q Enqueuer, opts ...Option) *Pipeline {
	p := &Pipeline{doer: doer, net: net, cache: c, queue: q, log: logging.Nop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Execute runs op under pol.
//
// Cache-enabled GETs go to the network while online and refresh the cache
// entry for op.Path; on a network-class failure, or when offline, the
// cached body is returned instead, and an empty array when nothing is
// cached. Queue-enabled writes that cannot reach the server are enqueued
// and reported as Queued, and so are writes under Policy.Defer. Application errors are always returned as
// errors and never served from cache or queued.
func (p *Pipeline) Execute(ctx context.Context, op transport.Operation, pol Policy) (Outcome, error) {
	switch {
	case op.IsRead() && pol.CacheReads:
		return p.read(ctx, op)
	case op.IsWrite() && pol.QueueOfflineWrites:
		return p.write(ctx, op, pol)
	default:
		resp, err := p.doer.Do(ctx, op)
		if err != nil {
			return Outcome{}, err
		}
		return delivered(op, resp)
	}
}

func (p *Pipeline) read(ctx context.Context, op transport.Operation) (Outcome, error) {
	if !p.net.IsOnline() {
		return p.fromCache(ctx, op)
	}

	resp, err := p.doer.Do(ctx, op)
	if err != nil {
		if transport.IsNetworkError(err) {
			p.log.Warn(ctx, "read failed, falling back to cache", "path", op.Path, "error", err)
			return p.fromCache(ctx, op)
		}
		return Outcome{}, err
	}

	out, err := delivered(op, resp)
	if err != nil {
		return Outcome{}, err
	}
	body := out.Payload.Raw()
	if body == nil {
		body = emptyArray
	}
	if err := p.cache.Put(ctx, op.Path, body); err != nil {
		p.log.Error(ctx, "cache write failed", "path", op.Path, "error", err)
	}
	cacheReadsTotal.WithLabelValues(sourceNetwork).Inc()
	return out, nil
}

func (p *Pipeline) fromCache(ctx context.Context, op transport.Operation) (Outcome, error) {
	e, ok, err := p.cache.Get(ctx, op.Path)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		cacheReadsTotal.WithLabelValues(sourceMiss).Inc()
		p.log.Debug(ctx, "cache miss", "path", op.Path)
		return Outcome{Kind: Delivered, Payload: Payload{raw: emptyArray}, Stale: true}, nil
	}

	payload, err := NewPayload(e.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("cached %s: %w", op.Path, err)
	}
	cacheReadsTotal.WithLabelValues(sourceCache).Inc()
	p.log.Debug(ctx, "served from cache", "path", op.Path, "updated_at", e.UpdatedAt)
	return Outcome{Kind: Delivered, Payload: payload, Stale: true}, nil
}

func (p *Pipeline) write(ctx context.Context, op transport.Operation, pol Policy) (Outcome, error) {
	if pol.Defer {
		return p.enqueue(ctx, op, "deferred")
	}
	if !p.net.IsOnline() {
		return p.enqueue(ctx, op, "offline")
	}

	resp, err := p.doer.Do(ctx, op)
	if err != nil {
		if transport.IsNetworkError(err) {
			p.log.Warn(ctx, "write failed, queueing", "method", op.Method, "path", op.Path, "error", err)
			return p.enqueue(ctx, op, "network_error")
		}
		return Outcome{}, err
	}
	return delivered(op, resp)
}

func (p *Pipeline) enqueue(ctx context.Context, op transport.Operation, reason string) (Outcome, error) {
	seq, err := p.queue.Enqueue(ctx, op)
	if err != nil {
		return Outcome{}, err
	}
	queuedWritesTotal.WithLabelValues(reason).Inc()
	p.log.Info(ctx, "write queued", "sequence", seq, "method", op.Method, "path", op.Path, "reason", reason)
	return Outcome{Kind: Queued, Sequence: seq}, nil
}

func delivered(op transport.Operation, resp transport.Response) (Outcome, error) {
	payload, err := NewPayload(resp.Data)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s %s: %w", op.Method, op.Path, err)
	}
	return Outcome{Kind: Delivered, Payload: payload}, nil
}
