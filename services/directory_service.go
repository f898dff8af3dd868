package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"anonchat_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DirectoryService persists the known-user directory. The directory is pure
// reporting data: the pairing core never reads it, it only feeds the
// share-username feature and the admin user listing.
type DirectoryService struct {
	Dynamo *DynamoService
}

// Touch upserts the directory entry for userID, recording the first-seen
// timestamp once and refreshing the last-seen timestamp on every contact.
func (dir *DirectoryService) Touch(ctx context.Context, userID, username string) error {
	now := time.Now().Format(time.RFC3339)
	entry := models.DirectoryEntry{
		UserID:      userID,
		Username:    username,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}

	if existing, err := dir.GetEntry(ctx, userID); err == nil {
		entry.FirstSeenAt = existing.FirstSeenAt
		if username == "" {
			entry.Username = existing.Username
		}
	}

	if err := dir.Dynamo.PutItem(ctx, models.UsersTable, entry); err != nil {
		return fmt.Errorf("failed to save directory entry for %s: %w", userID, err)
	}
	return nil
}

// GetEntry fetches one directory entry by user id.
func (dir *DirectoryService) GetEntry(ctx context.Context, userID string) (*models.DirectoryEntry, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	item, err := dir.Dynamo.GetItem(ctx, models.UsersTable, key)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch directory entry for %s: %w", userID, err)
	}

	var entry models.DirectoryEntry
	if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal directory entry: %w", err)
	}
	return &entry, nil
}

// Username returns the stored username for userID, or empty when unknown.
func (dir *DirectoryService) Username(ctx context.Context, userID string) (string, error) {
	entry, err := dir.GetEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return "", nil
		}
		return "", err
	}
	return entry.Username, nil
}

// ListEntries returns every persisted directory entry.
func (dir *DirectoryService) ListEntries(ctx context.Context) ([]models.DirectoryEntry, error) {
	var entries []models.DirectoryEntry
	if err := dir.Dynamo.ScanAllItems(ctx, models.UsersTable, &entries); err != nil {
		return nil, err
	}
	log.Printf("🔍 Directory listing returned %d entries", len(entries))
	return entries, nil
}
