package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/common"
)

// Replayer drains the write queue.
type Replayer interface {
	Replay(ctx context.Context) (queue.Report, error)
}

// QueueDepth reports how many writes wait for replay.
type QueueDepth interface {
	Len(ctx context.Context) (int, error)
}

type Connectivity interface {
	IsOnline() bool
}

// SyncState is what the user sees about synchronisation.
type SyncState struct {
	Online bool
	Queued int
}

// SyncService lets the user inspect and force synchronisation.
type SyncService interface {
	// SyncNow replays the queue immediately. It fails with NETWORK_ERROR
	// while offline and REPLAY_ERROR when a pass is already running.
	SyncNow(ctx context.Context) (queue.Report, error)
	Status(ctx context.Context) (SyncState, error)
}

type syncService struct {
	replayer Replayer
	depth    QueueDepth
	net      Connectivity
}

func NewSyncService(r Replayer, depth QueueDepth, net Connectivity) SyncService {
	return &syncService{replayer: r, depth: depth, net: net}
}

var errOffline = errors.New("remote API unreachable")

func (s *syncService) SyncNow(ctx context.Context) (queue.Report, error) {
	if !s.net.IsOnline() {
		return queue.Report{}, common.NewAppError(common.CodeNetwork, "cannot sync while offline", errOffline)
	}
	rep, err := s.replayer.Replay(ctx)
	if err != nil {
		return queue.Report{}, toAppError("sync failed", err)
	}
	return rep, nil
}

func (s *syncService) Status(ctx context.Context) (SyncState, error) {
	n, err := s.depth.Len(ctx)
	if err != nil {
		return SyncState{}, toAppError("error reading queue", err)
	}
	return SyncState{Online: s.net.IsOnline(), Queued: n}, nil
}
