package netstatus

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/pocketlend/internal/logging"
)

const (
	defaultInterval     = 3 * time.Second
	defaultMaxInterval  = time.Minute
	defaultProbeTimeout = 5 * time.Second
)

type Option func(*Monitor)

// WithInterval sets the poll period while online and the first backoff
// step while offline.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithMaxInterval caps the offline backoff.
func WithMaxInterval(d time.Duration) Option {
	return func(m *Monitor) { m.maxInterval = d }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

type listener struct {
	id uint64
	fn func(bool)
}

// Monitor is the process's view of connectivity. Unknown state reads as
// offline.
type Monitor struct {
	probe        Probe
	log          logging.Logger
	interval     time.Duration
	maxInterval  time.Duration
	probeTimeout time.Duration

	// notifyMu serialises state changes with their notifications so every
	// listener sees transitions in order and exactly once.
	notifyMu sync.Mutex

	mu        sync.Mutex
	online    bool
	listeners []listener
	nextID    uint64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

func NewMonitor(probe Probe, opts ...Option) *Monitor {
	m := &Monitor{
		probe:        probe,
		log:          logging.Nop(),
		interval:     defaultInterval,
		maxInterval:  defaultMaxInterval,
		probeTimeout: defaultProbeTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	if m.maxInterval < m.interval {
		m.maxInterval = m.interval
	}
	return m
}

// Init runs one synchronous probe so IsOnline is meaningful before anyone
// subscribes.
func (m *Monitor) Init(ctx context.Context) {
	m.check(ctx)
}

// IsOnline returns the last observed state without probing.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Report records an externally observed state. Listeners run on the
// calling goroutine and must not call Report themselves.
func (m *Monitor) Report(online bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.listeners))
	for _, l := range m.listeners {
		fns = append(fns, l.fn)
	}
	m.mu.Unlock()

	m.log.Info(context.Background(), "connectivity changed", "online", online)
	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe registers fn for state transitions. The first subscriber
// starts background polling; the returned function unsubscribes and stops
// polling when nobody is left.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	if len(m.listeners) == 1 && !m.closed {
		m.startLocked()
	}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(id) })
	}
}

func (m *Monitor) unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			break
		}
	}
	if len(m.listeners) == 0 {
		m.stopLocked()
	}
}

// Shutdown stops polling, drops every listener and waits for the poll
// loop to exit. It must not be called from a listener.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	m.closed = true
	m.listeners = nil
	m.stopLocked()
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Monitor) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.poll(ctx)
	}()
}

func (m *Monitor) stopLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Monitor) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.interval
	b.MaxInterval = m.maxInterval
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.Reset()
	return b
}

func (m *Monitor) poll(ctx context.Context) {
	b := m.newBackOff()
	for {
		wait := m.interval
		if m.IsOnline() {
			b.Reset()
		} else {
			wait = b.NextBackOff()
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		m.check(ctx)
	}
}

func (m *Monitor) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	err := m.probe.Probe(pctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Debug(ctx, "probe failed", "error", err)
	}
	m.Report(err == nil)
}
