package services

import (
	"context"
	"fmt"
	"time"

	"anonchat_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ConversationLogService is the DynamoDB-backed ConversationSink: one
// append-only item per relayed message, keyed by the pairing the message
// travelled inside.
type ConversationLogService struct {
	Dynamo *DynamoService
}

// Record appends one relayed message to the conversation log.
func (s *ConversationLogService) Record(ctx context.Context, senderID, recipientID, text string) error {
	record := models.ConversationRecord{
		PairKey:     models.PairKey(senderID, recipientID),
		CreatedAt:   time.Now().Format(time.RFC3339Nano),
		MessageID:   uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     text,
	}
	if err := s.Dynamo.PutItem(ctx, models.ConversationsTable, record); err != nil {
		return fmt.Errorf("failed to store conversation record: %w", err)
	}
	return nil
}

// MessagesByPairKey fetches logged messages for a pairing, newest first.
func (s *ConversationLogService) MessagesByPairKey(ctx context.Context, pairKey string, limit int) ([]models.ConversationRecord, error) {
	keyCondition := "pairKey = :pairKey"
	expressionValues := map[string]types.AttributeValue{
		":pairKey": &types.AttributeValueMemberS{Value: pairKey},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.ConversationsTable, keyCondition, expressionValues, int32(limit), true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation messages: %w", err)
	}

	var records []models.ConversationRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to parse conversation messages: %w", err)
	}
	return records, nil
}
