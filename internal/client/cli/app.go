package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/pocketlend/internal/client/config"
	"github.com/dmitrijs2005/pocketlend/internal/client/netstatus"
	"github.com/dmitrijs2005/pocketlend/internal/client/pipeline"
	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/cache"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/chats"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/loans"
	"github.com/dmitrijs2005/pocketlend/internal/client/services"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/filex"
	"github.com/dmitrijs2005/pocketlend/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const defaultUser = "local"

type App struct {
	loans services.LoanService
	chats services.ChatService
	sync  services.SyncService

	userID string
	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger

	modeMu sync.Mutex
	mode   Mode

	closers []func() error
}

// NewApp wires every layer of the client from c. The returned App owns the
// store, the monitor and the replayer; release them with Close.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	log := logging.New(os.Stderr, c.LogLevel, c.LogFormat)
	app := &App{
		userID: defaultUser,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		log:    log,
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if _, err := filex.EnsureDBDir(c.DBPath); err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}
	st, err := store.Open(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening local store: %w", err)
	}
	app.closers = append(app.closers, st.Close)

	var probe netstatus.Probe = netstatus.NewHTTPProbe(c.APIBaseURL, c.HTTPTimeout)
	if c.HealthGRPCAddr != "" {
		hp, err := netstatus.NewGRPCHealthProbe(c.HealthGRPCAddr, "")
		if err != nil {
			return nil, fmt.Errorf("error creating health probe: %w", err)
		}
		app.closers = append(app.closers, hp.Close)
		probe = netstatus.AnyProbe(hp, probe)
	}

	mon := netstatus.NewMonitor(probe,
		netstatus.WithInterval(c.ProbeInterval),
		netstatus.WithMaxInterval(c.ProbeMaxInterval),
		netstatus.WithProbeTimeout(c.HTTPTimeout),
		netstatus.WithLogger(log.With("component", "netstatus")),
	)
	app.closers = append(app.closers, func() error { mon.Shutdown(); return nil })
	mon.Init(ctx)
	app.setMode(modeOf(mon.IsOnline()))
	unsubscribe := mon.Subscribe(func(online bool) { app.setMode(modeOf(online)) })
	app.closers = append(app.closers, func() error { unsubscribe(); return nil })

	rest := transport.NewRestClient(c.APIBaseURL, c.APIKey, c.HTTPTimeout)
	q := queue.New(st)
	placeholders := loans.NewPlaceholderStore(st)

	replayer := queue.NewReplayer(q, rest,
		queue.WithReconciler(placeholders),
		queue.WithResolver(placeholders),
		queue.WithMaxAttempts(c.MaxReplayAttempts),
		queue.WithLogger(log.With("component", "replay")),
	)
	app.closers = append(app.closers, func() error { replayer.Stop(); return nil })
	replayer.Attach(ctx, mon)
	if c.ReplaySchedule != "" {
		if err := replayer.StartSweep(ctx, c.ReplaySchedule, mon); err != nil {
			return nil, fmt.Errorf("error scheduling replay: %w", err)
		}
	}

	pipe := pipeline.New(rest, mon, cache.NewSQLiteRepository(st.DB()), q,
		pipeline.WithLogger(log.With("component", "pipeline")),
	)

	app.loans = services.NewLoanService(loans.NewRemoteRepository(pipe, placeholders))
	app.chats = services.NewChatService(chats.NewSQLiteRepository(st))
	app.sync = services.NewSyncService(replayer, q, mon)

	return app, nil
}

func modeOf(online bool) Mode {
	if online {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode != mode {
		a.mode = mode
		if a.log != nil {
			a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
		}
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	printlnFn(a.out, "pocketlend (type 'help' for commands)")
	runREPL(ctx, a, a.statusLine, a.reader, a.out)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) statusLine() string {
	s := a.userID + "@" + string(a.Mode())
	if a.sync == nil {
		return s
	}
	if st, err := a.sync.Status(context.Background()); err == nil && st.Queued > 0 {
		s = fmt.Sprintf("%s, %d queued", s, st.Queued)
	}
	return s
}
