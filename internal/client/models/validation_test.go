package models

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/pocketlend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanInput_Validate(t *testing.T) {
	valid := LoanInput{Borrower: " C ", Amount: "100", DueDate: "2026-01-01"}

	got, err := valid.Validate()
	require.NoError(t, err)
	assert.Equal(t, LoanFields{Borrower: "C", Amount: 100, DueDate: "2026-01-01", Status: LoanPending}, got)

	tests := []struct {
		name  string
		mut   func(in *LoanInput)
		field string
	}{
		{"blank borrower", func(in *LoanInput) { in.Borrower = "   " }, "borrower"},
		{"amount not a number", func(in *LoanInput) { in.Amount = "ten" }, "amount"},
		{"amount infinite", func(in *LoanInput) { in.Amount = "Inf" }, "amount"},
		{"amount NaN", func(in *LoanInput) { in.Amount = "NaN" }, "amount"},
		{"amount empty", func(in *LoanInput) { in.Amount = "" }, "amount"},
		{"blank due date", func(in *LoanInput) { in.DueDate = "" }, "dueDate"},
		{"unknown status", func(in *LoanInput) { in.Status = "paused" }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mut(&in)
			_, err := in.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestLoanInput_StatusAccepted(t *testing.T) {
	in := LoanInput{Borrower: "A", Amount: "1.25", DueDate: "2026-02-02", Status: "Completed", Term: " 6m "}
	got, err := in.Validate()
	require.NoError(t, err)
	assert.Equal(t, LoanCompleted, got.Status)
	assert.Equal(t, "6m", got.Term)
}

func TestLoanPatch_Validate(t *testing.T) {
	s := func(v string) *string { return &v }

	body, err := LoanPatch{Borrower: s("Updated")}.Validate()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"borrower": "Updated"}, body)

	body, err = LoanPatch{Amount: s("20"), Status: s("active"), DueDate: s("2026-03-03")}.Validate()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": 20.0, "status": LoanActive, "due_date": "2026-03-03"}, body)

	_, err = LoanPatch{}.Validate()
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = LoanPatch{Borrower: s(" ")}.Validate()
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = LoanPatch{Amount: s("x")}.Validate()
	assert.ErrorIs(t, err, common.ErrorValidation)
}
