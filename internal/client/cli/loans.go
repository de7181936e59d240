package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/pocketlend/internal/client/models"
	"github.com/dmitrijs2005/pocketlend/internal/client/repositories/loans"
)

func (a *App) Loans(ctx context.Context, args []string) error {
	list, err := a.loans.List(ctx)
	if err != nil {
		return err
	}
	a.printLoans(list)
	return nil
}

func (a *App) Loan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("loan <id>")
	}
	l, err := a.loans.Get(ctx, args[0])
	if err != nil {
		return err
	}
	a.printLoans([]models.Loan{l})
	return nil
}

func (a *App) AddLoan(ctx context.Context, args []string) error {
	var in models.LoanInput
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Borrower", &in.Borrower},
		{"Amount", &in.Amount},
		{"Due date (YYYY-MM-DD)", &in.DueDate},
		{"Term (optional)", &in.Term},
		{"Status (blank for pending)", &in.Status},
	}
	for _, f := range fields {
		v, err := GetSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	res, err := a.loans.Create(ctx, in)
	if err != nil {
		return err
	}
	a.printWrite("created", res)
	return nil
}

func (a *App) EditLoan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("editloan <id>")
	}
	var p models.LoanPatch
	fields := []struct {
		prompt string
		dst    **string
	}{
		{"Borrower", &p.Borrower},
		{"Amount", &p.Amount},
		{"Due date (YYYY-MM-DD)", &p.DueDate},
		{"Term", &p.Term},
		{"Status", &p.Status},
	}
	for _, f := range fields {
		v, ok, err := GetOptionalText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		if ok {
			*f.dst = &v
		}
	}

	res, err := a.loans.Update(ctx, args[0], p)
	if err != nil {
		return err
	}
	a.printWrite("updated", res)
	return nil
}

func (a *App) SetStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("setstatus <id> <" + strings.Join(statusNames(), "|") + ">")
	}
	res, err := a.loans.SetStatus(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	a.printWrite("updated", res)
	return nil
}

func (a *App) RemoveLoan(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmloan <id>")
	}
	res, err := a.loans.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	a.printWrite("deleted", res)
	return nil
}

func (a *App) Pending(ctx context.Context, args []string) error {
	list, err := a.loans.Pending(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn(a.out, "Nothing waiting for sync.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCAL ID\tBORROWER\tSYNC\tERROR")
	for _, l := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.LocalID, l.Borrower, l.SyncStatus, l.SyncError)
	}
	return tw.Flush()
}

func (a *App) Retry(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("retry <local-id>")
	}
	res, err := a.loans.Retry(ctx, args[0])
	if err != nil {
		return err
	}
	a.printWrite("synced", res)
	return nil
}

func (a *App) Sync(ctx context.Context, args []string) error {
	rep, err := a.sync.SyncNow(ctx)
	if err != nil {
		return err
	}
	printlnFn(a.out, fmt.Sprintf("Replayed %d write(s), %d rejected.", len(rep.Succeeded), len(rep.Failed)))
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	st, err := a.sync.Status(ctx)
	if err != nil {
		return err
	}
	mode := ModeOffline
	if st.Online {
		mode = ModeOnline
	}
	printlnFn(a.out, fmt.Sprintf("Mode: %s, queued writes: %d", mode, st.Queued))
	return nil
}

func (a *App) printLoans(list []models.Loan) {
	if len(list) == 0 {
		printlnFn(a.out, "No loans.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBORROWER\tAMOUNT\tDUE\tSTATUS\tTERM")
	for _, l := range list {
		id := l.ID
		if l.Pending {
			id += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%s\n", id, l.Borrower, l.Amount, l.DueDate, l.Status, l.Term)
	}
	_ = tw.Flush()
}

func (a *App) printWrite(verb string, res loans.WriteResult) {
	switch {
	case res.Queued:
		printlnFn(a.out, fmt.Sprintf("Offline: queued as #%d, tracked locally as %s.", res.Sequence, res.LocalID))
	case res.Loan != nil:
		printlnFn(a.out, fmt.Sprintf("Loan %s %s.", res.Loan.ID, verb))
	default:
		printlnFn(a.out, "Done.")
	}
}

func statusNames() []string {
	var out []string
	for _, s := range models.LoanStatuses() {
		out = append(out, string(s))
	}
	return out
}
