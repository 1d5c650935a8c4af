package accounting

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures for callers.
type ErrorKind string

const (
	KindValidation  ErrorKind = "VALIDATION"
	KindNotFound    ErrorKind = "NOT_FOUND"
	KindDuplicate   ErrorKind = "DUPLICATE"
	KindPersistence ErrorKind = "PERSISTENCE"
	KindConcurrency ErrorKind = "CONCURRENCY"
)

// Error is the single error contract returned by every ledger operation.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("accounting: %s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return "accounting: " + e.Msg
	case e.Err != nil:
		return fmt.Sprintf("accounting: %s: %v", kindLabel(e.Kind), e.Err)
	default:
		return "accounting: " + kindLabel(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets a bare kind sentinel such as ErrValidation match any error of that
// kind, and a message sentinel match wrapped copies of itself.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	// ErrValidation matches every validation failure.
	ErrValidation = &Error{Kind: KindValidation}
	// ErrNotFound matches every missing account, entry or year.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrDuplicate matches every uniqueness violation.
	ErrDuplicate = &Error{Kind: KindDuplicate}
	// ErrPersistence matches every store failure.
	ErrPersistence = &Error{Kind: KindPersistence}
	// ErrConcurrency matches lost races and lock conflicts.
	ErrConcurrency = &Error{Kind: KindConcurrency}

	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = &Error{Kind: KindValidation, Msg: "journal lines must balance"}
	// ErrNoLines indicates an entry without lines.
	ErrNoLines = &Error{Kind: KindValidation, Msg: "journal requires at least one line"}
	// ErrAccountNotFound indicates an unknown account name or code.
	ErrAccountNotFound = &Error{Kind: KindNotFound, Msg: "account not found"}
	// ErrUnknownAccountCode indicates a journal line references a missing account.
	ErrUnknownAccountCode = &Error{Kind: KindValidation, Msg: "journal line references unknown account"}
	// ErrJournalNotFound indicates a missing entry.
	ErrJournalNotFound = &Error{Kind: KindNotFound, Msg: "journal entry not found"}
	// ErrDuplicateAccount indicates the account name is taken.
	ErrDuplicateAccount = &Error{Kind: KindDuplicate, Msg: "account already exists"}
	// ErrReservedAccountName indicates a non-equity account named like the retained earnings account.
	ErrReservedAccountName = &Error{Kind: KindValidation, Msg: "account name reserved for retained earnings"}
	// ErrDuplicateOpeningBalance indicates the year already has an opening balance entry.
	ErrDuplicateOpeningBalance = &Error{Kind: KindDuplicate, Msg: "opening balance already recorded"}
	// ErrCodeContention indicates code generation kept colliding with concurrent writers.
	ErrCodeContention = &Error{Kind: KindConcurrency, Msg: "account code generation contended"}
	// ErrYearClosed indicates the fiscal year is already closed.
	ErrYearClosed = &Error{Kind: KindConcurrency, Msg: "fiscal year already closed"}
	// ErrYearLocked indicates another caller is closing or reversing the year.
	ErrYearLocked = &Error{Kind: KindConcurrency, Msg: "fiscal year busy"}
	// ErrNothingToReverse indicates the year has no archive.
	ErrNothingToReverse = &Error{Kind: KindNotFound, Msg: "nothing to reverse"}
	// ErrReversalRequired indicates deletion policy requires a prior reversal.
	ErrReversalRequired = &Error{Kind: KindValidation, Msg: "entry must be reversed before deletion"}
	// ErrClosedYearPosting indicates an entry dated inside a closed fiscal year.
	ErrClosedYearPosting = &Error{Kind: KindValidation, Msg: "fiscal year is closed for posting"}
	// ErrSerialization indicates the store aborted a conflicting transaction.
	ErrSerialization = &Error{Kind: KindConcurrency, Msg: "concurrent update detected"}
)

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// persistence wraps unclassified store failures.
func persistence(err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Kind: KindPersistence, Err: err}
}

// KindOf extracts the kind of err; unknown errors are persistence failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindPersistence
}

// Result is what the presentation layer renders after an operation.
type Result struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// Outcome converts an operation error into a Result.
func Outcome(err error, success string) Result {
	if err == nil {
		return Result{Success: true, Message: success}
	}
	return Result{Success: false, Message: err.Error(), Kind: KindOf(err)}
}

func kindLabel(kind ErrorKind) string {
	switch kind {
	case KindValidation:
		return "validation failed"
	case KindNotFound:
		return "not found"
	case KindDuplicate:
		return "duplicate"
	case KindConcurrency:
		return "concurrent modification"
	default:
		return "persistence failure"
	}
}
