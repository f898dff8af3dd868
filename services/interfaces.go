package services

import "context"

// Sender delivers a text to one user over the outbound transport.
// Best-effort: the core never retries a failed send.
type Sender interface {
	SendToUser(userID, text string) error
}

// ConversationSink records one relayed message. Append-only; a failed
// record is logged and dropped, never retried.
type ConversationSink interface {
	Record(ctx context.Context, senderID, recipientID, text string) error
}

// PairStore persists the set of currently active pairings so it can be
// reloaded after a restart. Pairs are unordered (a,b) id tuples.
type PairStore interface {
	LoadActivePairs(ctx context.Context) ([][2]string, error)
	PersistActivePairs(ctx context.Context, pairs [][2]string) error
}
