package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplayer struct {
	calls int
	rep   queue.Report
	err   error
}

func (f *fakeReplayer) Replay(ctx context.Context) (queue.Report, error) {
	f.calls++
	return f.rep, f.err
}

type fixedDepth int

func (d fixedDepth) Len(ctx context.Context) (int, error) { return int(d), nil }

type fixedNet bool

func (n fixedNet) IsOnline() bool { return bool(n) }

func TestSyncService_SyncNow(t *testing.T) {
	r := &fakeReplayer{rep: queue.Report{Succeeded: []int64{1, 2}}}

	_, err := NewSyncService(r, fixedDepth(0), fixedNet(false)).SyncNow(context.Background())
	assert.Equal(t, common.CodeNetwork, common.CodeOf(err))
	assert.Zero(t, r.calls)

	rep, err := NewSyncService(r, fixedDepth(0), fixedNet(true)).SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, rep.Succeeded)

	r.err = common.ErrReplayInProgress
	_, err = NewSyncService(r, fixedDepth(0), fixedNet(true)).SyncNow(context.Background())
	assert.Equal(t, common.CodeReplay, common.CodeOf(err))
}

func TestSyncService_Status(t *testing.T) {
	st, err := NewSyncService(&fakeReplayer{}, fixedDepth(4), fixedNet(true)).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncState{Online: true, Queued: 4}, st)
}
