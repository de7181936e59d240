package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoanStatus is the business state of a loan.
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanDefaulted LoanStatus = "defaulted"
	LoanCancelled LoanStatus = "cancelled"
)

var loanStatuses = []LoanStatus{LoanPending, LoanActive, LoanCompleted, LoanDefaulted, LoanCancelled}

func LoanStatuses() []LoanStatus {
	return append([]LoanStatus(nil), loanStatuses...)
}

func (s LoanStatus) Valid() bool {
	for _, v := range loanStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// SyncStatus is the reconciliation state of a locally originated record.
type SyncStatus string

const (
	// SyncPending: not yet confirmed by the server.
	SyncPending SyncStatus = "pending"
	// SyncSynced: accepted, canonical fields merged.
	SyncSynced SyncStatus = "synced"
	// SyncFailed: rejected; stays until the user retries.
	SyncFailed SyncStatus = "failed"
)

func (s SyncStatus) Valid() bool {
	return s == SyncPending || s == SyncSynced || s == SyncFailed
}

// Loan is a lending record. ID is the server id once known and the local
// id before that. A pending loan always has a LocalID; a synced loan
// always has a ServerID.
type Loan struct {
	ID       string
	LocalID  string
	ServerID string

	Borrower string
	Amount   float64
	DueDate  string
	Status   LoanStatus
	Term     string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Pending marks a record that so far exists only as a queued write.
	Pending    bool
	SyncStatus SyncStatus
	SyncError  string
}

// LoanDTO is the snake_case wire shape plus the local-only columns, with
// camelCase aliases tolerated.
type LoanDTO struct {
	ID            FlexString `json:"id"`
	ServerID      FlexString `json:"server_id"`
	ServerIDCamel FlexString `json:"serverId"`
	LocalID       FlexString `json:"local_id"`
	LocalIDCamel  FlexString `json:"localId"`

	Borrower     string     `json:"borrower"`
	Amount       FlexFloat  `json:"amount"`
	Term         FlexString `json:"term"`
	DueDate      FlexString `json:"due_date"`
	DueDateCamel FlexString `json:"dueDate"`
	Status       string     `json:"status"`

	CreatedAt      FlexString `json:"created_at"`
	CreatedAtCamel FlexString `json:"createdAt"`
	UpdatedAt      FlexString `json:"updated_at"`
	UpdatedAtCamel FlexString `json:"updatedAt"`

	Pending         bool       `json:"pending"`
	SyncStatus      FlexString `json:"sync_status"`
	SyncStatusCamel FlexString `json:"syncStatus"`
	SyncError       FlexString `json:"sync_error"`
	SyncErrorCamel  FlexString `json:"syncError"`
}

// LoanFromDTO maps d with these precedences:
//
//	ServerID:   server_id, serverId, id
//	LocalID:    local_id, localId; without any id a name-based uuid of the
//	            loan's fields, so the same row maps to the same id every time
//	DueDate:    due_date, dueDate
//	CreatedAt:  created_at, createdAt (UpdatedAt likewise)
//	Status:     status, else pending
//	SyncStatus: sync_status, syncStatus, else synced with a server id and
//	            pending without one
//	SyncError:  sync_error, syncError
//
// A synced status without a server id is downgraded to pending.
func LoanFromDTO(d LoanDTO) Loan {
	l := Loan{
		ServerID:  string(firstOf(d.ServerID, d.ServerIDCamel, d.ID)),
		LocalID:   string(firstOf(d.LocalID, d.LocalIDCamel)),
		Borrower:  d.Borrower,
		Term:      string(d.Term),
		DueDate:   string(firstOf(d.DueDate, d.DueDateCamel)),
		Status:    LoanStatus(firstOf(d.Status, string(LoanPending))),
		CreatedAt: ParseTime(string(firstOf(d.CreatedAt, d.CreatedAtCamel))),
		UpdatedAt: ParseTime(string(firstOf(d.UpdatedAt, d.UpdatedAtCamel))),
		Pending:   d.Pending,
		SyncError: string(firstOf(d.SyncError, d.SyncErrorCamel)),
	}
	if d.Amount.Valid {
		l.Amount = d.Amount.Value
	}

	if l.ServerID == "" && l.LocalID == "" {
		l.LocalID = contentID(d)
	}

	l.SyncStatus = SyncStatus(firstOf(d.SyncStatus, d.SyncStatusCamel))
	if !l.SyncStatus.Valid() {
		l.SyncStatus = SyncPending
		if l.ServerID != "" {
			l.SyncStatus = SyncSynced
		}
	}
	if l.SyncStatus == SyncSynced && l.ServerID == "" {
		l.SyncStatus = SyncPending
	}

	l.ID = l.ServerID
	if l.ID == "" {
		l.ID = l.LocalID
	}
	return l
}

var loanNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:pocketlend:loan"))

// contentID derives a stable id for a loan that carries none. Rows with
// identical fields share it.
func contentID(d LoanDTO) string {
	amount := ""
	if d.Amount.Valid {
		amount = strconv.FormatFloat(d.Amount.Value, 'g', -1, 64)
	}
	key := strings.Join([]string{
		d.Borrower, amount, string(d.Term),
		string(firstOf(d.DueDate, d.DueDateCamel)), d.Status,
		string(firstOf(d.CreatedAt, d.CreatedAtCamel)),
		string(firstOf(d.UpdatedAt, d.UpdatedAtCamel)),
	}, "\x00")
	return uuid.NewSHA1(loanNamespace, []byte(key)).String()
}

// HasID reports whether the loan is identified by id, either its server
// or its local id.
func (l Loan) HasID(id string) bool {
	return id != "" && (l.ID == id || l.ServerID == id || l.LocalID == id)
}
