package domain

import (
	"fmt"

	"github.com/totegamma/concrnt-adz"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// NotAuthorError is returned when a guarded mutation is attempted by someone other than the author.
type NotAuthorError struct {
	Caller adz.AccountID
}

func (e NotAuthorError) Error() string {
	if e.Caller == "" {
		return "caller is not the author"
	}
	return fmt.Sprintf("%s is not the author", e.Caller)
}

func (e NotAuthorError) Is(target error) bool {
	_, ok := target.(NotAuthorError)
	if ok {
		return true
	}
	_, ok = target.(*NotAuthorError)
	return ok
}

// InsufficientFundsError is returned when an escrow transfer cannot be completed.
type InsufficientFundsError struct {
	From   adz.AccountID
	Amount adz.Amount
}

func (e InsufficientFundsError) Error() string {
	if e.From == "" {
		return "insufficient funds"
	}
	return fmt.Sprintf("insufficient funds: %s cannot pay %d", e.From, e.Amount)
}

func (e InsufficientFundsError) Is(target error) bool {
	_, ok := target.(InsufficientFundsError)
	if ok {
		return true
	}
	_, ok = target.(*InsufficientFundsError)
	return ok
}

// InvalidCallError marks a transaction that could not be decoded or dispatched.
type InvalidCallError struct {
	Reason string
}

func (e InvalidCallError) Error() string {
	if e.Reason == "" {
		return "invalid call"
	}
	return "invalid call: " + e.Reason
}

func (e InvalidCallError) Is(target error) bool {
	_, ok := target.(InvalidCallError)
	if ok {
		return true
	}
	_, ok = target.(*InvalidCallError)
	return ok
}

var (
	ErrNotFound          = NotFoundError{}
	ErrNotAuthor         = NotAuthorError{}
	ErrInsufficientFunds = InsufficientFundsError{}
	ErrInvalidCall       = InvalidCallError{}
)
