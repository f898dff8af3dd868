package services

import "errors"

// Rejections surfaced by the pairing state machine. All are local,
// recoverable, user-facing conditions reported as values, never panics.
var (
	ErrAlreadyInChat         = errors.New("already in a chat")
	ErrAlreadyWaiting        = errors.New("already waiting for a partner")
	ErrNotInChat             = errors.New("not in a chat")
	ErrNoPriorPartner        = errors.New("no prior partner to rematch with")
	ErrRequestAlreadyPending = errors.New("a rematch request is already pending")
	ErrPartnerBusy           = errors.New("partner is busy in another chat")
)
