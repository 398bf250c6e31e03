package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for sending claim-flow notifications
type EmailService interface {
	SendLinkConfirmation(ctx context.Context, email, platform string, bonusXP int64) error
	SendSponsorReceipt(ctx context.Context, email, tier string, amountCents int64) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendLinkConfirmation notifies an account that a chat platform was linked
func (s *AWSSESEmailService) SendLinkConfirmation(ctx context.Context, email, platform string, bonusXP int64) error {
	subject := "Your account is now linked"
	textBody := fmt.Sprintf(`Your %s account is now linked to your DANZ profile.

You earned %d XP for linking. Check your rewards dashboard to see your new balance.

Didn't do this? Unlink the platform from your dashboard settings and contact support.
`, platform, bonusXP)

	return s.send(ctx, email, subject, textBody)
}

// SendSponsorReceipt confirms a sponsor purchase claim
func (s *AWSSESEmailService) SendSponsorReceipt(ctx context.Context, email, tier string, amountCents int64) error {
	subject := "Sponsorship confirmed"
	textBody := fmt.Sprintf(`Thank you for sponsoring!

Tier: %s
Amount: $%.2f

Your sponsorship is now attached to your account. Visit your sponsor dashboard for details and perks.
`, tier, float64(amountCents)/100)

	return s.send(ctx, email, subject, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
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
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}
