package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/pocketlend/internal/common"
	"golang.org/x/term"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = func(w io.Writer, a ...any) {
	fmt.Fprintln(w, a...)
}

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// execIface defines the command surface the REPL dispatches to. The real
// App satisfies it; tests provide a stub.
type execIface interface {
	Loans(ctx context.Context, args []string) error
	Loan(ctx context.Context, args []string) error
	AddLoan(ctx context.Context, args []string) error
	EditLoan(ctx context.Context, args []string) error
	SetStatus(ctx context.Context, args []string) error
	RemoveLoan(ctx context.Context, args []string) error
	Pending(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	User(ctx context.Context, args []string) error
	Chats(ctx context.Context, args []string) error
	NewChat(ctx context.Context, args []string) error
	Say(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	RenameChat(ctx context.Context, args []string) error
	RemoveChat(ctx context.Context, args []string) error
	ClearChats(ctx context.Context, args []string) error
}

const helpText = `Loans:
  loans                      list loans
  loan <id>                  show one loan
  addloan                    create a loan (interactive)
  editloan <id>              change loan fields (interactive, blank keeps)
  setstatus <id> <status>    change a loan's status
  rmloan <id>                delete a loan
  pending                    list loans with unsynced writes
  retry <local-id>           resend a rejected write
  sync                       replay queued writes now
  status                     show connectivity and queue depth
Chats:
  user <id>                  switch the chat user
  chats                      list chats
  newchat [title]            start a chat
  say <chat-id> <text>       add a user message
  history <chat-id>          show a chat with its messages
  rename <chat-id> <title>   rename a chat
  rmchat <chat-id>           delete a chat and its messages
  clearchats                 delete every chat of the user
  help | exit | quit`

// runREPL reads commands line by line from r and dispatches them to a.
// The loop exits on EOF or when the user types "exit" or "quit". Command
// errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader, w io.Writer) {
	for {
		if isTerminal() {
			fmt.Fprintf(w, "pl %s > ", statusFn())
		}
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cerr error
		switch cmd {
		case "help":
			printlnFn(w, helpText)
		case "l", "loans":
			cerr = a.Loans(ctx, args)
		case "loan":
			cerr = a.Loan(ctx, args)
		case "addloan":
			cerr = a.AddLoan(ctx, args)
		case "editloan":
			cerr = a.EditLoan(ctx, args)
		case "setstatus":
			cerr = a.SetStatus(ctx, args)
		case "rmloan":
			cerr = a.RemoveLoan(ctx, args)
		case "pending":
			cerr = a.Pending(ctx, args)
		case "retry":
			cerr = a.Retry(ctx, args)
		case "sync":
			cerr = a.Sync(ctx, args)
		case "status":
			cerr = a.Status(ctx, args)
		case "user":
			cerr = a.User(ctx, args)
		case "chats":
			cerr = a.Chats(ctx, args)
		case "newchat":
			cerr = a.NewChat(ctx, args)
		case "say":
			cerr = a.Say(ctx, args)
		case "history":
			cerr = a.History(ctx, args)
		case "rename":
			cerr = a.RenameChat(ctx, args)
		case "rmchat":
			cerr = a.RemoveChat(ctx, args)
		case "clearchats":
			cerr = a.ClearChats(ctx, args)
		case "exit", "quit":
			printlnFn(w, "Bye!")
			return
		default:
			printlnFn(w, "Unknown command:", cmd)
		}
		if cerr != nil {
			printlnFn(w, describe(cerr))
		}
		if err != nil {
			return
		}
	}
}

// describe renders an error for the user.
func describe(err error) string {
	var ae *common.AppError
	if errors.As(err, &ae) {
		return fmt.Sprintf("error [%s]: %s", ae.Code, ae.Message)
	}
	return "error: " + err.Error()
}

var errUsage = errors.New("wrong number of arguments")

func usage(text string) error {
	return fmt.Errorf("%w, usage: %s", errUsage, text)
}
