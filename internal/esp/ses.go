package esp

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// SESAPI is the subset of the SES v2 client the mailer calls.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES mailer.
type SESConfig struct {
	Region           string
	AccessKey        string
	SecretKey        string
	ConfigurationSet string
}

// SESMailer sends through AWS SES. The sender's address must be a verified
// identity in the account.
type SESMailer struct {
	client    SESAPI
	configSet string
}

// NewSESMailer loads AWS configuration and creates the mailer. Static keys
// are used when both are set, otherwise the default credential chain.
func NewSESMailer(ctx context.Context, cfg SESConfig) (*SESMailer, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESMailerWithClient(sesv2.NewFromConfig(awsCfg), cfg.ConfigurationSet), nil
}

// NewSESMailerWithClient wraps an existing client.
func NewSESMailerWithClient(client SESAPI, configSet string) *SESMailer {
	return &SESMailer{client: client, configSet: configSet}
}

// Name implements Mailer.
func (s *SESMailer) Name() string { return "ses" }

// Send implements Mailer.
func (s *SESMailer) Send(ctx context.Context, sender *domain.SenderIdentity, msg *Message) (string, error) {
	if sender.Email == "" {
		return "", errors.New("sender has no e-mail address")
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(sender.Email),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.configSet != "" {
		in.ConfigurationSetName = aws.String(s.configSet)
	}
	for k, v := range msg.Metadata {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String(k), Value: aws.String(v)})
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}

	id := aws.ToString(out.MessageId)
	logger.Debug("ses message accepted", "component", "esp", "sender_id", sender.ID, "message_id", id)
	return id, nil
}
