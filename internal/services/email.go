package services

import (
  "context"
  "fmt"

  "github.com/sendgrid/sendgrid-go"
  "github.com/sendgrid/sendgrid-go/helpers/mail"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

type EmailType string

const (
  EmailTypeSupport       EmailType = "support"
  EmailTypeAuthorization EmailType = "authorization"
)

type EmailService interface {
  SendEmail(ctx context.Context, toEmail, subject, plainText, htmlContent string, emailType EmailType) error
}

type emailService struct {
  log                    *logger.Logger
  client                 *sendgrid.Client
  fromSupportEmail       string
  fromAuthorizationEmail string
}

func NewEmailService(log *logger.Logger, apiKey, fromSupport, fromAuth string) (EmailService, error) {
  serviceLog := log.With("service", "EmailService")
  if apiKey == "" {
    return nil, fmt.Errorf("missing SENDGRID_API_KEY")
  }
  if fromSupport == "" {
    serviceLog.Warn("SENDGRID_SUPPORT_EMAIL not set; using fallback no-reply@aristo.app")
    fromSupport = "no-reply@aristo.app"
  }
  if fromAuth == "" {
    serviceLog.Warn("SENDGRID_AUTHORIZATION_EMAIL not set; using fallback auth@aristo.app")
    fromAuth = "auth@aristo.app"
  }
  return &emailService{
    log:                    serviceLog,
    client:                 sendgrid.NewSendClient(apiKey),
    fromSupportEmail:       fromSupport,
    fromAuthorizationEmail: fromAuth,
  }, nil
}

func (es *emailService) SendEmail(ctx context.Context, toEmail, subject, plainText, htmlContent string, emailType EmailType) error {
  fromName := "Aristo"
  fromEmail := es.fromSupportEmail
  if emailType == EmailTypeAuthorization {
    fromName = "Aristo Accounts"
    fromEmail = es.fromAuthorizationEmail
  }
  from := mail.NewEmail(fromName, fromEmail)
  to := mail.NewEmail("", toEmail)
  message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
  response, err := es.client.SendWithContext(ctx, message)
  if err != nil {
    es.log.Warn("Sendgrid email send failed", "error", err)
    return err
  }
  if response.StatusCode >= 400 {
    es.log.Warn("Sendgrid rejected email", "statusCode", response.StatusCode, "body", response.Body)
    return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
  }
  es.log.Info("Email sent", "to", toEmail, "statusCode", response.StatusCode)
  return nil
}
