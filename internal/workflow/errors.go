package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrPermission: the acting account may not perform the operation
	// (admins cannot apply for agreements).
	ErrPermission = errors.New("admins cannot apply for agreements")
	// ErrDuplicateRequest: the requester already has a pending request.
	ErrDuplicateRequest = errors.New("a pending agreement request already exists")
	// ErrInvalidState: the request is absent or no longer pending,
	// including the case where another admin decided it first.
	ErrInvalidState = errors.New("agreement request is not pending")
	// ErrAccountNotFound: accept could not locate the requester's
	// account. Recoverable; the request status has already moved to
	// checked and the admin must reconcile manually.
	ErrAccountNotFound = errors.New("requester account not found")
)

// PartialError reports an accept where the request-status write and the
// account-promotion write did not both commit. It is never collapsed
// into a plain success or a plain failure, so the caller can reconcile.
type PartialError struct {
	RequestID     string
	StatusUpdated bool
	Promoted      bool
	Err           error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("accept of request %s partially applied (status updated: %t, promoted: %t): %v",
		e.RequestID, e.StatusUpdated, e.Promoted, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
