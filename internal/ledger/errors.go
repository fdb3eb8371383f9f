package ledger

import "errors"

// Sentinel errors surfaced to the handler layer, which turns them into
// {success:false, message} responses.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("not allowed")
	ErrAlreadyInvested   = errors.New("already invested in this pitch")
	ErrUnchanged         = errors.New("amount unchanged")
	ErrAlreadyBanned     = errors.New("user is already banned")
	ErrNotBanned         = errors.New("user is not banned")
	ErrBanned            = errors.New("account is banned")
)
