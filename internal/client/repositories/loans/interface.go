// Package loans maps the remote loan collection onto models.Loan and
// tracks loans whose writes are still queued.
package loans

import (
	"context"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/pipeline"
	"github.com/dmitrijs2005/pocketlend/internal/client/transport"
)

// Requester is the offline-first pipeline as seen by the repository.
type Requester interface {
	Execute(ctx context.Context, op transport.Operation, pol pipeline.Policy) (pipeline.Outcome, error)
}

// WriteResult is the outcome of a mutation. When Queued is set the write
// was deferred: Loan is nil and LocalID names the placeholder that tracks
// it. Deleted is set by a confirmed delete.
type WriteResult struct {
	Loan     *models.Loan
	Queued   bool
	Sequence int64
	LocalID  string
	Deleted  bool
}

type Repository interface {
	GetLoans(ctx context.Context) ([]models.Loan, error)
	// GetLoanByID returns nil, nil when no loan matches.
	GetLoanByID(ctx context.Context, id string) (*models.Loan, error)
	CreateLoan(ctx context.Context, f models.LoanFields) (WriteResult, error)
	UpdateLoan(ctx context.Context, id string, patch map[string]any) (WriteResult, error)
	DeleteLoan(ctx context.Context, id string) (WriteResult, error)
	// PendingLoans lists local placeholders that are pending or failed.
	PendingLoans(ctx context.Context) ([]models.Loan, error)
	// RetrySync re-sends the write of a failed placeholder.
	RetrySync(ctx context.Context, localID string) (WriteResult, error)
}
