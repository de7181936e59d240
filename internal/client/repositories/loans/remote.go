package loans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/pipeline"
	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
)

const collectionPath = "/loans"

var (
	readPolicy  = pipeline.Policy{CacheReads: true}
	writePolicy = pipeline.Policy{QueueOfflineWrites: true}
	deferPolicy = pipeline.Policy{QueueOfflineWrites: true, Defer: true}
)

// RemoteRepository serves loans from the remote API through the
// offline-first pipeline. Placeholders may be nil, in which case queued
// writes are reported but not tracked locally.
type RemoteRepository struct {
	req          Requester
	placeholders *PlaceholderStore
}

func NewRemoteRepository(req Requester, placeholders *PlaceholderStore) *RemoteRepository {
	return &RemoteRepository{req: req, placeholders: placeholders}
}

func itemPath(id string) string {
	return collectionPath + "?id=eq." + url.QueryEscape(id)
}

func (r *RemoteRepository) GetLoans(ctx context.Context) ([]models.Loan, error) {
	out, err := r.req.Execute(ctx, transport.Operation{Method: http.MethodGet, Path: collectionPath}, readPolicy)
	if err != nil {
		return nil, err
	}
	return mapLoans(out.Payload)
}

func mapLoans(p pipeline.Payload) ([]models.Loan, error) {
	items, err := p.Items()
	if err != nil {
		return nil, err
	}
	loans := make([]models.Loan, 0, len(items))
	for _, raw := range items {
		if string(raw) == "null" {
			continue
		}
		var d models.LoanDTO
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode loan: %w", err)
		}
		loans = append(loans, models.LoanFromDTO(d))
	}
	return loans, nil
}

// GetLoanByID scans the collection for id. Loans that exist only as local
// placeholders are found by their local id.
func (r *RemoteRepository) GetLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	loans, err := r.GetLoans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].HasID(id) {
			return &loans[i], nil
		}
	}

	if r.placeholders == nil {
		return nil, nil
	}
	ph, err := r.placeholders.Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ph.Loan, nil
}

func (r *RemoteRepository) CreateLoan(ctx context.Context, f models.LoanFields) (WriteResult, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return WriteResult{}, err
	}
	op := transport.Operation{Method: http.MethodPost, Path: collectionPath, Body: body, LocalID: store.NewLocalID()}
	return r.write(ctx, op, "", writePolicy, func(p pipeline.Payload) (WriteResult, error) {
		loan, ok, err := firstLoan(p)
		if err != nil {
			return WriteResult{}, err
		}
		if !ok {
			// No representation returned; echo what was sent.
			var d models.LoanDTO
			_ = json.Unmarshal(body, &d)
			d.LocalID = models.FlexString(op.LocalID)
			loan = models.LoanFromDTO(d)
		}
		return WriteResult{Loan: &loan}, nil
	})
}

// UpdateLoan patches the loan id, which may be a server id or the local id
// of a loan whose create is still queued. A confirmed patch that matched no
// loan is common.ErrorNotFound.
func (r *RemoteRepository) UpdateLoan(ctx context.Context, id string, patch map[string]any) (WriteResult, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return WriteResult{}, err
	}
	t, err := r.target(ctx, id)
	if err != nil {
		return WriteResult{}, err
	}
	op := transport.Operation{Method: http.MethodPatch, Path: t.path, Body: body, LocalID: t.localID}
	return r.write(ctx, op, t.serverID, t.policy, func(p pipeline.Payload) (WriteResult, error) {
		loan, ok, err := firstLoan(p)
		if err != nil {
			return WriteResult{}, err
		}
		if !ok {
			return WriteResult{}, fmt.Errorf("loan %s: %w", id, common.ErrorNotFound)
		}
		return WriteResult{Loan: &loan}, nil
	})
}

func (r *RemoteRepository) DeleteLoan(ctx context.Context, id string) (WriteResult, error) {
	t, err := r.target(ctx, id)
	if err != nil {
		return WriteResult{}, err
	}
	op := transport.Operation{Method: http.MethodDelete, Path: t.path, LocalID: t.localID}
	return r.write(ctx, op, t.serverID, t.policy, func(pipeline.Payload) (WriteResult, error) {
		return WriteResult{Deleted: true}, nil
	})
}

// writeTarget is where a mutation of one loan is sent.
type writeTarget struct {
	localID  string
	serverID string
	path     string
	policy   pipeline.Policy
}

// target resolves id through the placeholders. A loan without a server id
// is addressed by its local id and its writes are deferred behind the
// queued create; any loan with queued writes defers new ones so they keep
// their order.
func (r *RemoteRepository) target(ctx context.Context, id string) (writeTarget, error) {
	t := writeTarget{localID: store.NewLocalID(), serverID: id, path: itemPath(id), policy: writePolicy}
	if r.placeholders == nil {
		return t, nil
	}

	ph, found, err := r.placeholders.Lookup(ctx, id)
	if err != nil || !found {
		return t, err
	}
	t.localID = ph.Loan.LocalID
	t.serverID = ph.Loan.ServerID

	queued, err := r.placeholders.QueuedWrites(ctx, t.localID)
	if err != nil {
		return writeTarget{}, err
	}
	if t.serverID == "" {
		t.path = itemPath(t.localID)
	} else {
		t.path = itemPath(t.serverID)
	}
	if t.serverID == "" || queued > 0 {
		t.policy = deferPolicy
	}
	return t, nil
}

// write runs op and records a placeholder when it was queued; otherwise
// mapDelivered shapes the server's answer.
func (r *RemoteRepository) write(ctx context.Context, op transport.Operation, serverID string, pol pipeline.Policy,
	mapDelivered func(pipeline.Payload) (WriteResult, error)) (WriteResult, error) {

	out, err := r.req.Execute(ctx, op, pol)
	if err != nil {
		return WriteResult{}, err
	}
	if out.IsQueued() {
		if r.placeholders != nil {
			if err := r.placeholders.SaveQueued(ctx, serverID, op); err != nil {
				return WriteResult{}, err
			}
		}
		return WriteResult{Queued: true, Sequence: out.Sequence, LocalID: op.LocalID}, nil
	}
	return mapDelivered(out.Payload)
}

func firstLoan(p pipeline.Payload) (models.Loan, bool, error) {
	raw, ok := p.First()
	if !ok {
		return models.Loan{}, false, nil
	}
	var d models.LoanDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.Loan{}, false, fmt.Errorf("decode loan: %w", err)
	}
	return models.LoanFromDTO(d), true, nil
}

func (r *RemoteRepository) PendingLoans(ctx context.Context) ([]models.Loan, error) {
	if r.placeholders == nil {
		return []models.Loan{}, nil
	}
	phs, err := r.placeholders.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Loan, 0, len(phs))
	for _, ph := range phs {
		out = append(out, ph.Loan)
	}
	return out, nil
}

// RetrySync re-sends the recorded write of a failed placeholder through
// the pipeline. It returns common.ErrNotFailed for placeholders that are
// not in the failed state.
func (r *RemoteRepository) RetrySync(ctx context.Context, localID string) (WriteResult, error) {
	if r.placeholders == nil {
		return WriteResult{}, common.ErrorNotFound
	}
	ph, err := r.placeholders.Get(ctx, localID)
	if err != nil {
		return WriteResult{}, err
	}
	if ph.Loan.SyncStatus != models.SyncFailed {
		return WriteResult{}, common.ErrNotFailed
	}
	if ph.Op.Method == "" {
		return WriteResult{}, fmt.Errorf("placeholder %s has no recorded write: %w", localID, common.ErrorInternal)
	}
	op, err := r.placeholders.Resolve(ctx, queue.QueuedOperation{Op: ph.Op})
	if err != nil {
		return WriteResult{}, err
	}
	pol := writePolicy
	if queued, err := r.placeholders.QueuedWrites(ctx, localID); err != nil {
		return WriteResult{}, err
	} else if queued > 0 {
		pol = deferPolicy
	}
	if err := r.placeholders.MarkPending(ctx, localID); err != nil {
		return WriteResult{}, err
	}

	out, err := r.req.Execute(ctx, op, pol)
	if err != nil {
		qop := queue.QueuedOperation{Op: ph.Op}
		if rerr := r.placeholders.Rejected(ctx, qop, err); rerr != nil {
			return WriteResult{}, rerr
		}
		return WriteResult{}, err
	}
	if out.IsQueued() {
		return WriteResult{Queued: true, Sequence: out.Sequence, LocalID: localID}, nil
	}

	if err := r.placeholders.Synced(ctx, queue.QueuedOperation{Op: ph.Op}, out.Payload.Raw()); err != nil {
		return WriteResult{}, err
	}
	if ph.Op.Method == http.MethodDelete {
		return WriteResult{Deleted: true}, nil
	}
	loan, ok, err := firstLoan(out.Payload)
	if err != nil {
		return WriteResult{}, err
	}
	if !ok {
		synced, err := r.placeholders.Get(ctx, localID)
		if err != nil {
			return WriteResult{LocalID: localID}, nil
		}
		loan = synced.Loan
	}
	return WriteResult{Loan: &loan}, nil
}
