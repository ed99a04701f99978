package wallet

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("wallet: amount must be positive")
	ErrInvalidArgument    = errors.New("wallet: invalid argument")
	ErrWalletNotFound     = errors.New("wallet: not found")
	ErrWalletExists       = errors.New("wallet: already exists")
	ErrCurrencyMismatch   = errors.New("wallet: currency mismatch")
	ErrInsufficient       = errors.New("wallet: insufficient balance")
	ErrDuplicateReference = errors.New("wallet: duplicate reference")
	ErrReferenceNotFound  = errors.New("wallet: reference not found")
	ErrChainBroken        = errors.New("wallet: transaction chain broken")
)

// InsufficientBalanceError is returned when a debit exceeds the available balance.
// Nothing is written when it is returned.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("wallet: insufficient balance: required %s, available %s",
		FormatMinor(e.Required), FormatMinor(e.Available))
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficient }

// DuplicateReferenceError carries the transaction already recorded for the reference.
type DuplicateReferenceError struct {
	Existing Transaction
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("wallet: duplicate reference %q for %s (transaction %s)",
		e.Existing.ReferenceID, e.Existing.Type, e.Existing.ID)
}

func (e *DuplicateReferenceError) Is(target error) bool { return target == ErrDuplicateReference }

// isDomain reports whether err is a business outcome rather than a storage failure.
func isDomain(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidArgument, ErrWalletNotFound, ErrWalletExists,
		ErrCurrencyMismatch, ErrInsufficient, ErrDuplicateReference, ErrReferenceNotFound,
		ErrChainBroken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
