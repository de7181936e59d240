package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketlend/internal/client/store"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/dmitrijs2005/pocketlend/internal/dbx"
)

// QueuedOperation is one deferred write.
type QueuedOperation struct {
	Sequence  int64
	Op        transport.Operation
	CreatedAt time.Time
	Attempts  int
	LastError string
}

// Queue is the durable FIFO of deferred writes.
type Queue struct {
	st  *store.Store
	now func() time.Time
}

func New(st *store.Store) *Queue {
	return &Queue{st: st, now: time.Now}
}

// Enqueue appends op and returns its sequence number. Sequences increase
// monotonically and are never reused, even after removal.
func (q *Queue) Enqueue(ctx context.Context, op transport.Operation) (int64, error) {
	query := `INSERT INTO write_queue (method, path, body, local_id, created_at)
		VALUES (?, ?, ?, ?, ?)`

	var body any
	if len(op.Body) > 0 {
		body = []byte(op.Body)
	}
	var localID any
	if op.LocalID != "" {
		localID = op.LocalID
	}

	res, err := q.st.Execute(ctx, query, op.Method, op.Path, body, localID, q.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}

	enqueuedTotal.Inc()
	q.refreshDepth(ctx)
	return res.InsertID, nil
}

// ListPending returns every queued operation ordered by sequence.
func (q *Queue) ListPending(ctx context.Context) ([]QueuedOperation, error) {
	query := `SELECT sequence, method, path, body, local_id, created_at, attempts, last_error
		FROM write_queue ORDER BY sequence`

	res, err := q.st.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	out := make([]QueuedOperation, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// Get returns one queued operation or common.ErrorNotFound.
func (q *Queue) Get(ctx context.Context, sequence int64) (QueuedOperation, error) {
	query := `SELECT sequence, method, path, body, local_id, created_at, attempts, last_error
		FROM write_queue WHERE sequence = ?`

	res, err := q.st.Execute(ctx, query, sequence)
	if err != nil {
		return QueuedOperation{}, fmt.Errorf("failed to read queue entry: %w", err)
	}
	if len(res.Rows) == 0 {
		return QueuedOperation{}, common.ErrorNotFound
	}
	return fromRow(res.Rows[0]), nil
}

func (q *Queue) Remove(ctx context.Context, sequence int64) error {
	if _, err := q.st.Execute(ctx, `DELETE FROM write_queue WHERE sequence = ?`, sequence); err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", sequence, err)
	}
	q.refreshDepth(ctx)
	return nil
}

// MarkAttempt records a failed replay and returns the new attempt count.
func (q *Queue) MarkAttempt(ctx context.Context, sequence int64, lastError string) (int, error) {
	var attempts int
	err := q.st.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := store.Exec(ctx, tx,
			`UPDATE write_queue SET attempts = attempts + 1, last_error = ? WHERE sequence = ?`,
			lastError, sequence)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return common.ErrorNotFound
		}
		return tx.QueryRowContext(ctx,
			`SELECT attempts FROM write_queue WHERE sequence = ?`, sequence).Scan(&attempts)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark attempt for %d: %w", sequence, err)
	}
	return attempts, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.st.DB().QueryRowContext(ctx, `SELECT count(*) FROM write_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (q *Queue) refreshDepth(ctx context.Context) {
	if n, err := q.Len(ctx); err == nil {
		queueDepth.Set(float64(n))
	}
}

func fromRow(r store.Row) QueuedOperation {
	op := QueuedOperation{
		Sequence:  r.Int("sequence"),
		Attempts:  int(r.Int("attempts")),
		LastError: r.String("last_error"),
		Op: transport.Operation{
			Method:  r.String("method"),
			Path:    r.String("path"),
			LocalID: r.String("local_id"),
		},
	}
	if b := r.String("body"); b != "" {
		op.Op.Body = json.RawMessage(b)
	}
	if t, err := time.Parse(time.RFC3339Nano, r.String("created_at")); err == nil {
		op.CreatedAt = t
	}
	return op
}
