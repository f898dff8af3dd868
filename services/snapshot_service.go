package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"anonchat_server/models"
	"anonchat_server/utils"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PairSnapshotService is the DynamoDB-backed PairStore. It keeps one item
// per active pairing and rewrites the whole table on every state-changing
// transition, so that a restarted service can reload the pairing set.
type PairSnapshotService struct {
	Dynamo *DynamoService
}

// LoadActivePairs reads the persisted pairing set.
func (s *PairSnapshotService) LoadActivePairs(ctx context.Context) ([][2]string, error) {
	items, err := s.Dynamo.ScanItems(ctx, models.ActivePairsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load pairing snapshot: %w", err)
	}

	pairs := make([][2]string, 0, len(items))
	for _, item := range items {
		if utils.ExtractString(item, "state") != models.PairStateActive {
			continue
		}
		userA := utils.ExtractString(item, "userAId")
		userB := utils.ExtractString(item, "userBId")
		if userA == "" || userB == "" {
			continue
		}
		pairs = append(pairs, [2]string{userA, userB})
	}
	return pairs, nil
}

// PersistActivePairs rewrites the snapshot table to hold exactly pairs:
// stale rows are deleted, current rows upserted.
func (s *PairSnapshotService) PersistActivePairs(ctx context.Context, pairs [][2]string) error {
	var existing []models.ActivePair
	if err := s.Dynamo.ScanAllItems(ctx, models.ActivePairsTable, &existing); err != nil {
		return fmt.Errorf("failed to read current pairing snapshot: %w", err)
	}

	current := make(map[string][2]string, len(pairs))
	for _, pair := range pairs {
		current[models.PairKey(pair[0], pair[1])] = pair
	}

	var writes []types.WriteRequest
	for _, row := range existing {
		if _, keep := current[row.PairKey]; keep {
			continue
		}
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"pairKey": &types.AttributeValueMemberS{Value: row.PairKey},
				},
			},
		})
	}

	now := time.Now().Format(time.RFC3339)
	for key, pair := range current {
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{
				Item: map[string]types.AttributeValue{
					"pairKey":   &types.AttributeValueMemberS{Value: key},
					"userAId":   &types.AttributeValueMemberS{Value: pair[0]},
					"userBId":   &types.AttributeValueMemberS{Value: pair[1]},
					"state":     &types.AttributeValueMemberS{Value: models.PairStateActive},
					"updatedAt": &types.AttributeValueMemberS{Value: now},
				},
			},
		})
	}

	if len(writes) == 0 {
		return nil
	}
	if err := s.Dynamo.BatchWriteItems(ctx, models.ActivePairsTable, writes); err != nil {
		return fmt.Errorf("failed to persist pairing snapshot: %w", err)
	}
	log.Printf("✅ Pairing snapshot persisted: %d active pairs", len(current))
	return nil
}
