package models

// User state values. A user is Waiting iff they sit in the waiting queue,
// and Active iff PartnerID is set to the other member of their pairing.
const (
	StateIdle    = "idle"
	StateWaiting = "waiting"
	StateActive  = "active"
)

// User is the in-memory registry record for one platform user. Records are
// created lazily on first contact and never deleted, so LastPartnerID and
// RematchRequested survive across sessions.
type User struct {
	UserID           string `dynamodbav:"userId" json:"userId"`
	State            string `dynamodbav:"state" json:"state"`
	PartnerID        string `dynamodbav:"partnerId" json:"partnerId,omitempty"`
	LastPartnerID    string `dynamodbav:"lastPartnerId" json:"lastPartnerId,omitempty"`
	RematchRequested bool   `dynamodbav:"rematchRequested" json:"rematchRequested"`
}

// DirectoryEntry is the persisted known-user directory row.
type DirectoryEntry struct {
	UserID      string `dynamodbav:"userId" json:"userId"`
	Username    string `dynamodbav:"username" json:"username"`
	FirstSeenAt string `dynamodbav:"firstSeenAt" json:"firstSeenAt"`
	LastSeenAt  string `dynamodbav:"lastSeenAt" json:"lastSeenAt"`
}

// UsersTable is the DynamoDB table name for the known-user directory
const UsersTable = "AnonChatUsers"
