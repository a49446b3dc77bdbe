package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailMessage is a rendered email. TextBody is the plain alternative
// for clients that don't show HTML, Kind ends up as an SES message tag
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	Kind     string
}

// EmailRepository only delivers; rendering belongs to EmailService
type EmailRepository interface {
	SendEmail(ctx context.Context, message EmailMessage) error
}

type emailRepositoryHandler struct {
	sesClient *sesv2.Client
	fromEmail string
}

// fromEmail must be a verified SES sender in region
func NewEmailRepository(region, fromEmail string) (EmailRepository, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &emailRepositoryHandler{
		sesClient: sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}, nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{
		Data:    aws.String(data),
		Charset: aws.String("UTF-8"),
	}
}

func (h *emailRepositoryHandler) SendEmail(ctx context.Context, message EmailMessage) error {
	if message.To == "" {
		return fmt.Errorf("email has no recipient")
	}
	body := &types.Body{}
	if message.HTMLBody != "" {
		body.Html = utf8Content(message.HTMLBody)
	}
	if message.TextBody != "" {
		body.Text = utf8Content(message.TextBody)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(h.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{message.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(message.Subject),
				Body:    body,
			},
		},
	}
	if message.Kind != "" {
		input.EmailTags = []types.MessageTag{{
			Name:  aws.String("kind"),
			Value: aws.String(message.Kind),
		}}
	}

	out, err := h.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send %s email via SES: %w", message.Kind, err)
	}
	if out.MessageId == nil {
		return fmt.Errorf("SES accepted the email without a message id")
	}

	return nil
}
