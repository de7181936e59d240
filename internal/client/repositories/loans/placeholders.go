package loans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/pipeline"
	"github.com/dmitrijs2005/pocketlend/internal/client/queue"
	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/dmitrijs2005/pocketlend/internal/dbx"
)

// Placeholder is a local loan row standing in for a write the server has
// not confirmed.
type Placeholder struct {
	Loan models.Loan
	Op   transport.Operation
}

// PlaceholderStore keeps placeholder loans in the local loans table and
// settles them when their queued writes are replayed.
type PlaceholderStore struct {
	st  *store.Store
	now func() time.Time
}

func NewPlaceholderStore(st *store.Store) *PlaceholderStore {
	return &PlaceholderStore{st: st, now: time.Now}
}

const placeholderColumns = `local_id, server_id, borrower, amount, term, due_date, status,
	pending_op, pending_path, body, sync_status, sync_error, created_at, updated_at`

// Lookup finds the placeholder tracking id, matched against both the local
// and the server id.
func (p *PlaceholderStore) Lookup(ctx context.Context, id string) (Placeholder, bool, error) {
	res, err := p.st.Execute(ctx, `SELECT `+placeholderColumns+` FROM loans
		WHERE local_id = ? OR server_id = ? ORDER BY local_id = ? DESC LIMIT 1`, id, id, id)
	if err != nil {
		return Placeholder{}, false, fmt.Errorf("failed to look up placeholder for %s: %w", id, err)
	}
	if len(res.Rows) == 0 {
		return Placeholder{}, false, nil
	}
	ph, err := fromRow(res.Rows[0])
	return ph, err == nil, err
}

// QueuedWrites counts the writes still queued for the loan with localID.
func (p *PlaceholderStore) QueuedWrites(ctx context.Context, localID string) (int, error) {
	return queuedWrites(ctx, p.st.DB(), localID)
}

func queuedWrites(ctx context.Context, db dbx.DBTX, localID string) (int, error) {
	res, err := store.Exec(ctx, db, `SELECT COUNT(*) AS n FROM write_queue WHERE local_id = ?`, localID)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued writes for %s: %w", localID, err)
	}
	return int(res.Rows[0].Int("n")), nil
}

// Resolve implements queue.Resolver. A write queued against a loan that had
// no server id yet addresses it by local id; once the create has been
// replayed the path is rewritten to the server id.
func (p *PlaceholderStore) Resolve(ctx context.Context, op queue.QueuedOperation) (transport.Operation, error) {
	out := op.Op
	if out.LocalID == "" || out.Path != itemPath(out.LocalID) {
		return out, nil
	}
	ph, err := p.Get(ctx, out.LocalID)
	if errors.Is(err, common.ErrorNotFound) {
		return out, nil
	}
	if err != nil {
		return transport.Operation{}, err
	}
	if ph.Loan.ServerID != "" {
		out.Path = itemPath(ph.Loan.ServerID)
	}
	return out, nil
}

// SaveQueued records op as pending for op.LocalID. Fields present in the
// body overwrite the stored ones; serverID is kept once set and is never
// taken from the local id.
func (p *PlaceholderStore) SaveQueued(ctx context.Context, serverID string, op transport.Operation) error {
	var d models.LoanDTO
	if len(op.Body) > 0 {
		if err := json.Unmarshal(op.Body, &d); err != nil {
			return fmt.Errorf("decode queued loan body: %w", err)
		}
	}
	now := models.FormatTime(p.now())

	return p.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, found, err := p.get(ctx, tx, op.LocalID)
		if err != nil {
			return err
		}

		l := cur.Loan
		if !found {
			l = models.Loan{LocalID: op.LocalID, Status: models.LoanPending}
		}
		if l.ServerID == "" && serverID != op.LocalID {
			l.ServerID = serverID
		}
		if d.Borrower != "" {
			l.Borrower = d.Borrower
		}
		if d.Amount.Valid {
			l.Amount = d.Amount.Value
		}
		if d.Term != "" {
			l.Term = string(d.Term)
		}
		if d.DueDate != "" {
			l.DueDate = string(d.DueDate)
		}
		if d.Status != "" {
			l.Status = models.LoanStatus(d.Status)
		}

		_, err = store.Exec(ctx, tx, `INSERT INTO loans (`+placeholderColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', NULL, ?, ?)
			ON CONFLICT(local_id) DO UPDATE SET
				server_id = excluded.server_id,
				borrower = excluded.borrower,
				amount = excluded.amount,
				term = excluded.term,
				due_date = excluded.due_date,
				status = excluded.status,
				pending_op = excluded.pending_op,
				pending_path = excluded.pending_path,
				body = excluded.body,
				sync_status = 'pending',
				sync_error = NULL,
				updated_at = excluded.updated_at`,
			l.LocalID, nullable(l.ServerID), l.Borrower, l.Amount, nullable(l.Term), nullable(l.DueDate), string(l.Status),
			op.Method, op.Path, nullable(string(op.Body)), now, now)
		if err != nil {
			return fmt.Errorf("failed to save placeholder %s: %w", op.LocalID, err)
		}
		return nil
	})
}

// Get returns the placeholder with localID or common.ErrorNotFound.
func (p *PlaceholderStore) Get(ctx context.Context, localID string) (Placeholder, error) {
	var (
		ph    Placeholder
		found bool
	)
	err := p.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		ph, found, err = p.get(ctx, tx, localID)
		return err
	})
	if err != nil {
		return Placeholder{}, err
	}
	if !found {
		return Placeholder{}, common.ErrorNotFound
	}
	return ph, nil
}

func (p *PlaceholderStore) get(ctx context.Context, tx dbx.DBTX, localID string) (Placeholder, bool, error) {
	res, err := store.Exec(ctx, tx, `SELECT `+placeholderColumns+` FROM loans WHERE local_id = ?`, localID)
	if err != nil {
		return Placeholder{}, false, fmt.Errorf("failed to read placeholder %s: %w", localID, err)
	}
	if len(res.Rows) == 0 {
		return Placeholder{}, false, nil
	}
	ph, err := fromRow(res.Rows[0])
	return ph, err == nil, err
}

// List returns placeholders that are pending or failed, oldest first.
func (p *PlaceholderStore) List(ctx context.Context) ([]Placeholder, error) {
	res, err := p.st.Execute(ctx, `SELECT `+placeholderColumns+` FROM loans
		WHERE sync_status IN ('pending', 'failed') ORDER BY created_at, local_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list placeholders: %w", err)
	}
	out := make([]Placeholder, 0, len(res.Rows))
	for _, r := range res.Rows {
		ph, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ph)
	}
	return out, nil
}

// MarkPending resets a failed placeholder before a retry.
func (p *PlaceholderStore) MarkPending(ctx context.Context, localID string) error {
	_, err := p.st.Execute(ctx, `UPDATE loans SET sync_status = 'pending', sync_error = NULL, updated_at = ?
		WHERE local_id = ?`, models.FormatTime(p.now()), localID)
	if err != nil {
		return fmt.Errorf("failed to reset placeholder %s: %w", localID, err)
	}
	return nil
}

// Synced merges the server's canonical loan into the placeholder and marks
// it synced. A confirmed delete, or a confirmation that carries no server
// id, drops the placeholder: the loan now lives only on the server. While
// later writes for the same loan are still queued the placeholder stays
// pending with its local fields and newest write; only the server id is
// taken over.
func (p *PlaceholderStore) Synced(ctx context.Context, op queue.QueuedOperation, payload json.RawMessage) error {
	if op.Op.LocalID == "" {
		return nil
	}
	if op.Op.Method == http.MethodDelete {
		return p.remove(ctx, op.Op.LocalID)
	}

	var d models.LoanDTO
	if pl, err := pipeline.NewPayload(payload); err == nil {
		if first, ok := pl.First(); ok {
			if err := json.Unmarshal(first, &d); err != nil {
				return fmt.Errorf("decode synced loan: %w", err)
			}
		}
	}
	canonical := models.LoanFromDTO(d)

	return p.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, found, err := p.get(ctx, tx, op.Op.LocalID)
		if err != nil || !found {
			return err
		}

		l := cur.Loan
		if l.ServerID == "" {
			l.ServerID = canonical.ServerID
		}

		remaining, err := queuedWrites(ctx, tx, l.LocalID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			_, err = store.Exec(ctx, tx, `UPDATE loans SET server_id = ?, updated_at = ? WHERE local_id = ?`,
				nullable(l.ServerID), models.FormatTime(p.now()), l.LocalID)
			return err
		}

		if l.ServerID == "" {
			_, err := store.Exec(ctx, tx, `DELETE FROM loans WHERE local_id = ?`, l.LocalID)
			return err
		}
		if d.Borrower != "" {
			l.Borrower = canonical.Borrower
		}
		if d.Amount.Valid {
			l.Amount = canonical.Amount
		}
		if d.Term != "" {
			l.Term = canonical.Term
		}
		if canonical.DueDate != "" {
			l.DueDate = canonical.DueDate
		}
		if d.Status != "" {
			l.Status = canonical.Status
		}

		_, err = store.Exec(ctx, tx, `UPDATE loans SET server_id = ?, borrower = ?, amount = ?, term = ?,
			due_date = ?, status = ?, pending_op = NULL, pending_path = NULL, body = NULL,
			sync_status = 'synced', sync_error = NULL, updated_at = ?
			WHERE local_id = ?`,
			l.ServerID, l.Borrower, l.Amount, nullable(l.Term), nullable(l.DueDate), string(l.Status),
			models.FormatTime(p.now()), l.LocalID)
		return err
	})
}

// Rejected marks the placeholder failed with the server's reason and
// records the rejected write so RetrySync resends that one.
func (p *PlaceholderStore) Rejected(ctx context.Context, op queue.QueuedOperation, cause error) error {
	if op.Op.LocalID == "" {
		return nil
	}
	_, err := p.st.Execute(ctx, `UPDATE loans SET sync_status = 'failed', sync_error = ?,
		pending_op = ?, pending_path = ?, body = ?, updated_at = ?
		WHERE local_id = ?`, reason(cause), op.Op.Method, op.Op.Path, nullable(string(op.Op.Body)),
		models.FormatTime(p.now()), op.Op.LocalID)
	if err != nil {
		return fmt.Errorf("failed to mark placeholder %s failed: %w", op.Op.LocalID, err)
	}
	return nil
}

func (p *PlaceholderStore) remove(ctx context.Context, localID string) error {
	if _, err := p.st.Execute(ctx, `DELETE FROM loans WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to remove placeholder %s: %w", localID, err)
	}
	return nil
}

func reason(err error) string {
	var ae *transport.ApplicationError
	if errors.As(err, &ae) {
		return fmt.Sprintf("%d: %s", ae.Status, ae.Message())
	}
	return err.Error()
}

func fromRow(r store.Row) (Placeholder, error) {
	var d models.LoanDTO
	if err := r.Decode(&d); err != nil {
		return Placeholder{}, err
	}
	l := models.LoanFromDTO(d)
	l.Pending = l.SyncStatus == models.SyncPending

	ph := Placeholder{
		Loan: l,
		Op: transport.Operation{
			Method:  r.String("pending_op"),
			Path:    r.String("pending_path"),
			LocalID: l.LocalID,
		},
	}
	if b := r.String("body"); b != "" {
		ph.Op.Body = json.RawMessage(b)
	}
	return ph, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
