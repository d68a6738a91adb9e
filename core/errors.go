package core

import "errors"

// Admission errors. A transaction rejected with one of these never touches
// state and does not consume its nonce.
var (
	ErrInvalidTransaction = errors.New("core: invalid transaction")
	ErrUnknownTxType      = errors.New("core: unknown transaction type")
	ErrInvalidSignature   = errors.New("core: invalid signature")
	ErrInvalidNonce       = errors.New("core: invalid nonce")
	ErrInvalidPayload     = errors.New("core: invalid payload")
	ErrUnexpectedValue    = errors.New("core: value not accepted by this transaction type")
	ErrNotInitialised     = errors.New("core: genesis not applied")
)
