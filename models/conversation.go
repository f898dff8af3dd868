package models

// ConversationRecord is one relayed message in the append-only conversation
// log. PairKey is the canonical sorted-id key of the pairing the message
// travelled inside.
type ConversationRecord struct {
	PairKey     string `dynamodbav:"pairKey" json:"pairKey"`
	CreatedAt   string `dynamodbav:"createdAt" json:"createdAt"`
	MessageID   string `dynamodbav:"messageId" json:"messageId"`
	SenderID    string `dynamodbav:"senderId" json:"senderId"`
	RecipientID string `dynamodbav:"recipientId" json:"recipientId"`
	Content     string `dynamodbav:"content" json:"content"`
}

// ConversationsTable is the DynamoDB table name for relayed messages
const ConversationsTable = "AnonChatConversations"
