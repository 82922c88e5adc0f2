package service

import "errors"

var (
	// ErrDuplicateTrigger marks a second entry attempt for a symbol that
	// already has a trigger today.
	ErrDuplicateTrigger = errors.New("trigger already exists for symbol today")
	// ErrLeverageExceeded marks a buy that would push exposure past the
	// leverage ceiling.
	ErrLeverageExceeded = errors.New("leverage limit exceeded")
	// ErrLedgerDesync marks a holdings quantity the lot ledger cannot
	// account for.
	ErrLedgerDesync = errors.New("lot ledger out of sync with holdings")
	// ErrOutsideWindow marks an operation attempted outside its session
	// window.
	ErrOutsideWindow = errors.New("outside session window")
)
