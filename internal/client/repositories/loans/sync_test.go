package loans

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/pipeline"
	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/cache"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loanAPI is an in-memory PostgREST-like loans endpoint.
type loanAPI struct {
	mu            sync.Mutex
	nextID        int
	loans         map[string]map[string]any
	log           []string
	rejectUnnamed atomic.Bool
	patches       int
	failPatch     map[int]int
}

func newLoanAPI() *loanAPI {
	a := &loanAPI{loans: make(map[string]map[string]any), failPatch: make(map[int]int)}
	a.rejectUnnamed.Store(true)
	return a
}

func (a *loanAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/loans", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		out := make([]map[string]any, 0, len(a.loans))
		for i := 1; i <= a.nextID; i++ {
			if l, ok := a.loans[strconv.Itoa(i)]; ok {
				out = append(out, l)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	r.Post("/loans", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["borrower"] == "reject" && a.rejectUnnamed.Load() {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"borrower not allowed"}`))
			return
		}
		a.mu.Lock()
		a.nextID++
		id := strconv.Itoa(a.nextID)
		in["id"] = a.nextID
		a.loans[id] = in
		a.log = append(a.log, "POST "+id)
		a.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]any{in})
	})
	r.Patch("/loans", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		a.mu.Lock()
		defer a.mu.Unlock()
		a.patches++
		switch status := a.failPatch[a.patches]; {
		case status >= 500:
			w.WriteHeader(status)
			return
		case status > 0:
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"amount too high"}`))
			return
		}
		l, ok := a.loans[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no such loan"}`))
			return
		}
		for k, v := range in {
			l[k] = v
		}
		a.log = append(a.log, "PATCH "+id)
		_ = json.NewEncoder(w).Encode([]any{l})
	})
	r.Delete("/loans", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.loans, id)
		a.log = append(a.log, "DELETE "+id)
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

type switchNet struct{ online atomic.Bool }

func (n *switchNet) IsOnline() bool { return n.online.Load() }

type harness struct {
	api  *loanAPI
	net  *switchNet
	repo *RemoteRepository
	ph   *PlaceholderStore
	q    *queue.Queue
	rp   *queue.Replayer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	api := newLoanAPI()
	ts := httptest.NewServer(api.router())
	t.Cleanup(ts.Close)

	st, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	net := &switchNet{}
	doer := transport.NewRestClient(ts.URL, "", 2*time.Second)
	q := queue.New(st)
	ph := NewPlaceholderStore(st)
	p := pipeline.New(doer, net, cache.NewSQLiteRepository(st.DB()), q)

	return &harness{
		api:  api,
		net:  net,
		repo: NewRemoteRepository(p, ph),
		ph:   ph,
		q:    q,
		rp:   queue.NewReplayer(q, doer, queue.WithReconciler(ph), queue.WithResolver(ph)),
	}
}

func TestSync_OfflineCreateThenReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "C", Amount: 50, DueDate: "2026-01-01", Status: models.LoanPending})
	require.NoError(t, err)
	require.True(t, res.Queued)
	require.NotEmpty(t, res.LocalID)

	pending, err := h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending)
	assert.Equal(t, models.SyncPending, pending[0].SyncStatus)
	assert.Equal(t, res.LocalID, pending[0].LocalID)
	assert.Equal(t, "C", pending[0].Borrower)

	l, err := h.repo.GetLoanByID(ctx, res.LocalID)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "C", l.Borrower)

	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Succeeded, 1)

	ph, err := h.ph.Get(ctx, res.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, ph.Loan.SyncStatus)
	assert.Equal(t, "1", ph.Loan.ServerID)
	assert.Equal(t, res.LocalID, ph.Loan.LocalID)

	pending, err = h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	loans, err := h.repo.GetLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "C", loans[0].Borrower)
}

func TestSync_OfflineReadsServeCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.net.online.Store(true)
	_, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "A", DueDate: "2026-01-01", Status: models.LoanActive})
	require.NoError(t, err)
	loans, err := h.repo.GetLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)

	h.net.online.Store(false)
	loans, err = h.repo.GetLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "A", loans[0].Borrower)
}

func TestSync_RejectedThenRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "reject", DueDate: "2026-01-01", Status: models.LoanPending})
	require.NoError(t, err)
	require.True(t, res.Queued)

	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Len(t, rep.Failed, 1)

	pending, err := h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.SyncFailed, pending[0].SyncStatus)
	assert.False(t, pending[0].Pending)
	assert.Contains(t, pending[0].SyncError, "422")
	assert.Contains(t, pending[0].SyncError, "borrower not allowed")

	_, err = h.repo.RetrySync(ctx, "no-such-id")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// still rejected: stays failed and the error surfaces
	_, err = h.repo.RetrySync(ctx, res.LocalID)
	require.Error(t, err)
	assert.True(t, transport.IsRejection(err))
	ph, err := h.ph.Get(ctx, res.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncFailed, ph.Loan.SyncStatus)

	h.api.rejectUnnamed.Store(false)
	out, err := h.repo.RetrySync(ctx, res.LocalID)
	require.NoError(t, err)
	require.NotNil(t, out.Loan)
	assert.Equal(t, "1", out.Loan.ServerID)

	ph, err = h.ph.Get(ctx, res.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, ph.Loan.SyncStatus)

	_, err = h.repo.RetrySync(ctx, res.LocalID)
	assert.ErrorIs(t, err, common.ErrNotFailed)
}

func TestSync_QueuedWritesReplayInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.net.online.Store(true)
	created, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "A", DueDate: "2026-01-01", Status: models.LoanActive})
	require.NoError(t, err)
	id := created.Loan.ServerID
	require.Equal(t, "1", id)

	h.net.online.Store(false)
	upd, err := h.repo.UpdateLoan(ctx, id, map[string]any{"borrower": "Updated"})
	require.NoError(t, err)
	require.True(t, upd.Queued)
	del, err := h.repo.DeleteLoan(ctx, id)
	require.NoError(t, err)
	require.True(t, del.Queued)
	assert.Equal(t, upd.LocalID, del.LocalID, "one placeholder tracks one server id")

	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{upd.Sequence, del.Sequence}, rep.Succeeded)
	assert.Equal(t, []string{"POST 1", "PATCH 1", "DELETE 1"}, h.api.log)

	_, err = h.ph.Get(ctx, upd.LocalID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	loans, err := h.repo.GetLoans(ctx)
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func (a *loanAPI) failNthPatch(n, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failPatch[n] = status
}

func (a *loanAPI) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.log...)
}

func TestSync_UpdateOfQueuedCreateFollowsIt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "C", Amount: 50, DueDate: "2026-01-01", Status: models.LoanPending})
	require.NoError(t, err)
	require.True(t, created.Queued)

	upd, err := h.repo.UpdateLoan(ctx, created.LocalID, map[string]any{"amount": 99})
	require.NoError(t, err)
	require.True(t, upd.Queued)
	assert.Equal(t, created.LocalID, upd.LocalID)

	ph, err := h.ph.Get(ctx, created.LocalID)
	require.NoError(t, err)
	assert.Empty(t, ph.Loan.ServerID)
	assert.Equal(t, 99.0, ph.Loan.Amount)
	assert.Equal(t, "C", ph.Loan.Borrower)

	pending, err := h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.Sequence, upd.Sequence}, rep.Succeeded)
	assert.Empty(t, rep.Failed)
	assert.Equal(t, []string{"POST 1", "PATCH 1"}, h.api.calls())

	ph, err = h.ph.Get(ctx, created.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, ph.Loan.SyncStatus)
	assert.Equal(t, "1", ph.Loan.ServerID)
	assert.Equal(t, 99.0, ph.Loan.Amount)

	loans, err := h.repo.GetLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, 99.0, loans[0].Amount)
}

func TestSync_WriteBehindQueuedCreateIsDeferredWhileOnline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "C", DueDate: "2026-01-01", Status: models.LoanPending})
	require.NoError(t, err)

	h.net.online.Store(true)
	upd, err := h.repo.UpdateLoan(ctx, created.LocalID, map[string]any{"status": models.LoanActive})
	require.NoError(t, err)
	require.True(t, upd.Queued)
	assert.Empty(t, h.api.calls())

	del, err := h.repo.DeleteLoan(ctx, created.LocalID)
	require.NoError(t, err)
	require.True(t, del.Queued)

	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.Sequence, upd.Sequence, del.Sequence}, rep.Succeeded)
	assert.Equal(t, []string{"POST 1", "PATCH 1", "DELETE 1"}, h.api.calls())

	_, err = h.ph.Get(ctx, created.LocalID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

// twoQueuedPatches creates loan 1 online and queues two amount changes
// while offline.
func twoQueuedPatches(t *testing.T, h *harness) (first, second WriteResult) {
	t.Helper()
	ctx := context.Background()

	h.net.online.Store(true)
	created, err := h.repo.CreateLoan(ctx, models.LoanFields{Borrower: "A", Amount: 10, DueDate: "2026-01-01", Status: models.LoanActive})
	require.NoError(t, err)
	require.Equal(t, "1", created.Loan.ServerID)

	h.net.online.Store(false)
	first, err = h.repo.UpdateLoan(ctx, "1", map[string]any{"amount": 20})
	require.NoError(t, err)
	second, err = h.repo.UpdateLoan(ctx, "1", map[string]any{"amount": 30})
	require.NoError(t, err)
	require.True(t, first.Queued)
	require.True(t, second.Queued)
	require.Equal(t, first.LocalID, second.LocalID)
	return first, second
}

func TestSync_LaterQueuedWriteKeepsLoanPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, second := twoQueuedPatches(t, h)

	h.api.failNthPatch(2, http.StatusServiceUnavailable)
	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.Sequence}, rep.Succeeded)

	n, err := h.q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.SyncPending, pending[0].SyncStatus)
	assert.True(t, pending[0].Pending)
	assert.Equal(t, 30.0, pending[0].Amount)
	assert.Equal(t, "1", pending[0].ServerID)

	rep, err = h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.Sequence}, rep.Succeeded)

	ph, err := h.ph.Get(ctx, second.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, ph.Loan.SyncStatus)
	assert.Equal(t, 30.0, ph.Loan.Amount)
}

func TestSync_RejectedLaterWriteCanBeRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, second := twoQueuedPatches(t, h)

	h.api.failNthPatch(2, http.StatusUnprocessableEntity)
	h.net.online.Store(true)
	rep, err := h.rp.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.Sequence}, rep.Succeeded)
	assert.Equal(t, []int64{second.Sequence}, rep.Failed)

	pending, err := h.repo.PendingLoans(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.SyncFailed, pending[0].SyncStatus)
	assert.Contains(t, pending[0].SyncError, "422")

	out, err := h.repo.RetrySync(ctx, second.LocalID)
	require.NoError(t, err)
	require.NotNil(t, out.Loan)
	assert.Equal(t, 30.0, out.Loan.Amount)
	assert.Equal(t, []string{"POST 1", "PATCH 1", "PATCH 1"}, h.api.calls())

	ph, err := h.ph.Get(ctx, second.LocalID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncSynced, ph.Loan.SyncStatus)
}
