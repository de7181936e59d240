package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/loans"
	"github.com/dmitrijs2005/pocketlend/internal/common"
)

// LoanService defines the loan use cases.
//
// Contract:
//   - Input is validated before the repository is called; invalid input
//     yields a VALIDATION_ERROR and never reaches the network.
//   - A write deferred while offline succeeds with WriteResult.Queued set;
//     it is not an error.
//   - Every error is a *common.AppError.
type LoanService interface {
	List(ctx context.Context) ([]models.Loan, error)
	Get(ctx context.Context, id string) (models.Loan, error)
	Create(ctx context.Context, in models.LoanInput) (loans.WriteResult, error)
	Update(ctx context.Context, id string, patch models.LoanPatch) (loans.WriteResult, error)
	SetStatus(ctx context.Context, id, status string) (loans.WriteResult, error)
	Delete(ctx context.Context, id string) (loans.WriteResult, error)
	Pending(ctx context.Context) ([]models.Loan, error)
	Retry(ctx context.Context, localID string) (loans.WriteResult, error)
}

type loanService struct {
	repo loans.Repository
}

func NewLoanService(repo loans.Repository) LoanService {
	return &loanService{repo: repo}
}

func (s *loanService) List(ctx context.Context) ([]models.Loan, error) {
	out, err := s.repo.GetLoans(ctx)
	if err != nil {
		return nil, toAppError("error listing loans", err)
	}
	return out, nil
}

func (s *loanService) Get(ctx context.Context, id string) (models.Loan, error) {
	if err := requireID(id); err != nil {
		return models.Loan{}, err
	}
	l, err := s.repo.GetLoanByID(ctx, id)
	if err != nil {
		return models.Loan{}, toAppError("error retrieving loan", err)
	}
	if l == nil {
		return models.Loan{}, common.NewAppError(common.CodeNotFound, "loan "+id+" not found", common.ErrorNotFound)
	}
	return *l, nil
}

func (s *loanService) Create(ctx context.Context, in models.LoanInput) (loans.WriteResult, error) {
	f, err := in.Validate()
	if err != nil {
		return loans.WriteResult{}, toAppError("invalid loan", err)
	}
	res, err := s.repo.CreateLoan(ctx, f)
	if err != nil {
		return loans.WriteResult{}, toAppError("error creating loan", err)
	}
	return res, nil
}

func (s *loanService) Update(ctx context.Context, id string, patch models.LoanPatch) (loans.WriteResult, error) {
	if err := requireID(id); err != nil {
		return loans.WriteResult{}, err
	}
	body, err := patch.Validate()
	if err != nil {
		return loans.WriteResult{}, toAppError("invalid loan update", err)
	}
	res, err := s.repo.UpdateLoan(ctx, id, body)
	if err != nil {
		return loans.WriteResult{}, toAppError("error updating loan", err)
	}
	return res, nil
}

func (s *loanService) SetStatus(ctx context.Context, id, status string) (loans.WriteResult, error) {
	return s.Update(ctx, id, models.LoanPatch{Status: &status})
}

func (s *loanService) Delete(ctx context.Context, id string) (loans.WriteResult, error) {
	if err := requireID(id); err != nil {
		return loans.WriteResult{}, err
	}
	res, err := s.repo.DeleteLoan(ctx, id)
	if err != nil {
		return loans.WriteResult{}, toAppError("error deleting loan", err)
	}
	return res, nil
}

func (s *loanService) Pending(ctx context.Context) ([]models.Loan, error) {
	out, err := s.repo.PendingLoans(ctx)
	if err != nil {
		return nil, toAppError("error listing pending loans", err)
	}
	return out, nil
}

func (s *loanService) Retry(ctx context.Context, localID string) (loans.WriteResult, error) {
	if err := requireID(localID); err != nil {
		return loans.WriteResult{}, err
	}
	res, err := s.repo.RetrySync(ctx, localID)
	if err != nil {
		return loans.WriteResult{}, toAppError("error retrying sync", err)
	}
	return res, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return toAppError("", &models.ValidationError{Field: "id", Message: "must not be blank"})
	}
	return nil
}
