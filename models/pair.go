package models

import (
	"sort"
	"strings"
)

// ActivePair is one persisted row of the pairing snapshot. The snapshot is
// rewritten on every state-changing transition and reloaded at startup.
type ActivePair struct {
	PairKey   string `dynamodbav:"pairKey" json:"pairKey"`
	UserAID   string `dynamodbav:"userAId" json:"userAId"`
	UserBID   string `dynamodbav:"userBId" json:"userBId"`
	State     string `dynamodbav:"state" json:"state"`
	UpdatedAt string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// PairStateActive is the only state a persisted pair can hold; broken pairs
// are deleted from the snapshot rather than marked.
const PairStateActive = "active"

// ActivePairsTable is the DynamoDB table name for the pairing snapshot
const ActivePairsTable = "AnonChatPairs"

// PairKey builds the canonical key for a pairing: the two user ids sorted and
// joined, so that (a,b) and (b,a) address the same row.
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "#")
}
