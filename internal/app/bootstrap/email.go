package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/staydesk-support/internal/config"
	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/internal/notify"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// LoadAWSConfig builds the SDK config with optional static credentials and a
// LocalStack-style endpoint override.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return awsCfg, nil
}

// BuildEmailSender picks the escalation email provider. Unknown or
// unconfigured providers fall back to a log-only sender.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("EMAIL_PROVIDER=sendgrid without SENDGRID_API_KEY; emails will only be logged")
			return notify.NewLogSender(logger), nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		return notify.NewSESSender(client, notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	case "":
		return notify.NewLogSender(logger), nil
	default:
		logger.Warn("unknown EMAIL_PROVIDER; emails will only be logged", "provider", cfg.EmailProvider)
		return notify.NewLogSender(logger), nil
	}
}

// BuildEscalationNotifier combines the NATS publisher (may be nil) with the
// escalation mailer when ESCALATION_EMAIL_TO is set.
func BuildEscalationNotifier(ctx context.Context, cfg *appconfig.Config, publisher intake.EscalationNotifier, logger *logging.Logger) (intake.EscalationNotifier, error) {
	notifiers := []intake.EscalationNotifier{}
	if publisher != nil {
		notifiers = append(notifiers, publisher)
	}
	if strings.TrimSpace(cfg.EscalationEmailTo) != "" {
		sender, err := BuildEmailSender(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if mailer := notify.NewEscalationMailer(sender, cfg.EscalationEmailTo, cfg.EscalationEmailMinPriority, logger); mailer != nil {
			notifiers = append(notifiers, mailer)
		}
	}
	return notify.NewFanout(notifiers...), nil
}
