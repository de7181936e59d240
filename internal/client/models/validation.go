package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pocketlend/internal/common"
)

// ValidationError rejects one input field. It matches
// common.ErrorValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// LoanInput is loan data as typed by the user.
type LoanInput struct {
	Borrower string
	Amount   string
	DueDate  string
	Status   string
	Term     string
}

// LoanFields is validated loan data, shaped as the remote API expects it.
type LoanFields struct {
	Borrower string     `json:"borrower"`
	Amount   float64    `json:"amount"`
	Term     string     `json:"term,omitempty"`
	DueDate  string     `json:"due_date"`
	Status   LoanStatus `json:"status"`
}

// Validate checks borrower, amount, due date and status, in that order,
// and returns the first failure. An empty status means pending.
func (in LoanInput) Validate() (LoanFields, error) {
	out := LoanFields{
		Borrower: strings.TrimSpace(in.Borrower),
		Term:     strings.TrimSpace(in.Term),
		DueDate:  strings.TrimSpace(in.DueDate),
		Status:   LoanPending,
	}

	if out.Borrower == "" {
		return LoanFields{}, &ValidationError{Field: "borrower", Message: "must not be blank"}
	}
	amount, ok := ParseAmount(in.Amount)
	if !ok {
		return LoanFields{}, &ValidationError{Field: "amount", Message: fmt.Sprintf("%q is not a number", in.Amount)}
	}
	out.Amount = amount
	if out.DueDate == "" {
		return LoanFields{}, &ValidationError{Field: "dueDate", Message: "must not be blank"}
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, err := ParseLoanStatus(s)
		if err != nil {
			return LoanFields{}, err
		}
		out.Status = st
	}
	return out, nil
}

// LoanPatch is a partial update; nil fields are left unchanged.
type LoanPatch struct {
	Borrower *string
	Amount   *string
	DueDate  *string
	Status   *string
	Term     *string
}

// Validate applies the LoanInput rules to the fields present and returns
// the wire body of the update.
func (p LoanPatch) Validate() (map[string]any, error) {
	out := make(map[string]any)

	if p.Borrower != nil {
		b := strings.TrimSpace(*p.Borrower)
		if b == "" {
			return nil, &ValidationError{Field: "borrower", Message: "must not be blank"}
		}
		out["borrower"] = b
	}
	if p.Amount != nil {
		v, ok := ParseAmount(*p.Amount)
		if !ok {
			return nil, &ValidationError{Field: "amount", Message: fmt.Sprintf("%q is not a number", *p.Amount)}
		}
		out["amount"] = v
	}
	if p.DueDate != nil {
		d := strings.TrimSpace(*p.DueDate)
		if d == "" {
			return nil, &ValidationError{Field: "dueDate", Message: "must not be blank"}
		}
		out["due_date"] = d
	}
	if p.Status != nil {
		st, err := ParseLoanStatus(strings.TrimSpace(*p.Status))
		if err != nil {
			return nil, err
		}
		out["status"] = st
	}
	if p.Term != nil {
		out["term"] = strings.TrimSpace(*p.Term)
	}

	if len(out) == 0 {
		return nil, &ValidationError{Field: "patch", Message: "nothing to update"}
	}
	return out, nil
}

func ParseLoanStatus(s string) (LoanStatus, error) {
	st := LoanStatus(strings.ToLower(s))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("must be one of %v", loanStatuses)}
	}
	return st, nil
}
