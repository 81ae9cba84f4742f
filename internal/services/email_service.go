package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// ExtensionNotice describes a newly filed time-change request.
type ExtensionNotice struct {
	RequestID int64
	LockerID  int64
	UserID    int64
	Days      int
	CreatedAt time.Time
}

// ExtensionNotifier tells administrators about extension requests.
type ExtensionNotifier interface {
	NotifyExtensionRequested(ctx context.Context, notice ExtensionNotice) error
}

// NoopNotifier only logs the notice. Used when email is disabled.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyExtensionRequested(ctx context.Context, notice ExtensionNotice) error {
	n.logger.Debug("extension request notification skipped",
		slog.Int64("request_id", notice.RequestID),
		slog.Int64("locker_id", notice.LockerID),
	)
	return nil
}

// SESSender is the subset of the SES client used to send mail.
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails extension requests to the administrator mailbox.
type SESNotifier struct {
	sesClient    SESSender
	fromAddress  string
	adminAddress string
	logger       *slog.Logger
}

func NewSESNotifier(client SESSender, fromAddress, adminAddress string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		sesClient:    client,
		fromAddress:  fromAddress,
		adminAddress: adminAddress,
		logger:       logger,
	}
}

// NewSESNotifierFromConfig loads AWS credentials from the default chain.
func NewSESNotifierFromConfig(ctx context.Context, region, fromAddress, adminAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifier(ses.NewFromConfig(cfg), fromAddress, adminAddress, logger), nil
}

func (s *SESNotifier) NotifyExtensionRequested(ctx context.Context, notice ExtensionNotice) error {
	subject := fmt.Sprintf("Locker %d: extension request #%d", notice.LockerID, notice.RequestID)

	textBody := fmt.Sprintf(`A locker extension has been requested.

Request:   #%d
Locker:    %d
User:      %d
Days:      %d
Filed at:  %s

Review pending requests in the admin console.
`, notice.RequestID, notice.LockerID, notice.UserID, notice.Days, notice.CreatedAt.UTC().Format(time.RFC3339))

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.adminAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send extension notice via SES",
			slog.Int64("request_id", notice.RequestID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("extension notice sent",
		slog.Int64("request_id", notice.RequestID),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
