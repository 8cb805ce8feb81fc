package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrNoLedgerTarget  = errors.New("tenant has no ledger target configured")
	ErrExtraction      = errors.New("receipt extraction failed")
	ErrDialogue        = errors.New("dialogue generation failed")
	ErrAlreadyBound    = errors.New("identity already bound to a tenant")
	ErrEmptyName       = errors.New("name must not be empty")
	ErrSessionNotFound = errors.New("session not found")
)
