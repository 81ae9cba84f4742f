package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBPutter is the subset of the DynamoDB client used by the audit sink.
type DynamoDBPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBAuditSink appends access attempts to a DynamoDB table keyed by
// locker_id (partition) and timestamp (sort).
type DynamoDBAuditSink struct {
	client DynamoDBPutter
	table  string
	logger *slog.Logger
}

func NewDynamoDBAuditSink(client DynamoDBPutter, table string, logger *slog.Logger) *DynamoDBAuditSink {
	return &DynamoDBAuditSink{client: client, table: table, logger: logger}
}

// NewDynamoDBAuditSinkFromConfig builds the sink from the default AWS
// credential chain. A non-empty endpoint overrides the service URL, which
// is how DynamoDB Local is targeted.
func NewDynamoDBAuditSinkFromConfig(ctx context.Context, region, endpoint, table string, logger *slog.Logger) (*DynamoDBAuditSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	logger.Info("audit sink configured",
		slog.String("sink", "dynamodb"),
		slog.String("table", table),
		slog.String("region", region),
	)

	return NewDynamoDBAuditSink(client, table, logger), nil
}

// Record writes one item. The condition makes the table append-only: an
// existing item with the same key is never overwritten.
func (s *DynamoDBAuditSink) Record(ctx context.Context, entry models.AccessLogEntry) error {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal access log entry: %w", err)
	}
	item["timestamp"] = &types.AttributeValueMemberS{Value: entry.TimestampString()}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(locker_id) AND attribute_not_exists(#ts)"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put access log item: %w", err)
	}

	return nil
}

// LogAuditSink writes access attempts to the structured log only.
type LogAuditSink struct {
	auditLogger *pkglogger.AuditLogger
}

func NewLogAuditSink(auditLogger *pkglogger.AuditLogger) *LogAuditSink {
	return &LogAuditSink{auditLogger: auditLogger}
}

func (s *LogAuditSink) Record(ctx context.Context, entry models.AccessLogEntry) error {
	s.auditLogger.LogAccessAttempt(ctx, pkglogger.AccessEvent{
		EventID:   entry.EventID,
		LockerID:  entry.LockerID,
		Timestamp: entry.Timestamp,
		Status:    entry.Status,
		Reason:    entry.Reason,
		SourceIP:  entry.SourceIP,
	})
	return nil
}
