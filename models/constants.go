package models

// Command kinds accepted by the inbound dispatcher
const (
	CommandConnect       = "connect"
	CommandStop          = "stop"
	CommandSkip          = "skip"
	CommandRematch       = "rematch"
	CommandSend          = "send"
	CommandShareUsername = "share_username"
)

// Outcome statuses reported back to the transport
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
)
