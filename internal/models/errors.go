package models

import "errors"

// Ledger error taxonomy. Services return these sentinels; handlers map
// them to response codes without leaking storage details.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrValidationFailed  = errors.New("missing required field")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSelfTransfer      = errors.New("cannot transfer to your own account")
	ErrEmailTaken        = errors.New("email is already registered")
	ErrInvalidLogin      = errors.New("invalid email or password")
	ErrPlatformRejected  = errors.New("platform rejected the transfer")
)
