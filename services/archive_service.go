package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveService renders a pairing's conversation log to a plain-text
// transcript and uploads it to S3.
type ArchiveService struct {
	Client *s3.Client
	Log    *ConversationLogService
}

// NewArchiveService builds an ArchiveService on the default AWS config.
func NewArchiveService(logService *ConversationLogService) *ArchiveService {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return &ArchiveService{Client: s3.NewFromConfig(cfg), Log: logService}
}

// ExportTranscript uploads the transcript for pairKey and returns the object
// key together with a presigned read URL.
func (a *ArchiveService) ExportTranscript(ctx context.Context, pairKey string, limit int) (string, string, error) {
	records, err := a.Log.MessagesByPairKey(ctx, pairKey, limit)
	if err != nil {
		return "", "", err
	}
	if len(records) == 0 {
		return "", "", fmt.Errorf("no messages recorded for pair '%s'", pairKey)
	}

	// Query returns newest first; the transcript reads oldest first.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt < records[j].CreatedAt
	})

	var b strings.Builder
	for _, record := range records {
		fmt.Fprintf(&b, "User %s and User %s: %s\n", record.SenderID, record.RecipientID, record.Content)
	}

	key := "transcripts/" + pairKey + "-" + time.Now().Format("20060102150405") + ".txt"
	_, err = a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("S3_BUCKET_NAME")),
		Key:         aws.String(key),
		Body:        strings.NewReader(b.String()),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload transcript: %w", err)
	}
	log.Printf("✅ Uploaded transcript %s (%d messages)", key, len(records))

	presigner := s3.NewPresignClient(a.Client)
	presigned, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(os.Getenv("S3_BUCKET_NAME")),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return key, "", fmt.Errorf("failed to presign transcript URL: %w", err)
	}
	return key, presigned.URL, nil
}
