package services

import (
  "context"
  "fmt"
  "strings"

  twilio "github.com/twilio/twilio-go"
  openapi "github.com/twilio/twilio-go/rest/api/v2010"

  "github.com/slotter-org/aristo-backend/internal/logger"
)

// TextService sends WhatsApp messages through Twilio.
type TextService interface {
  SendWhatsApp(ctx context.Context, toNumber, body string) error
}

type textService struct {
  log    *logger.Logger
  client *twilio.RestClient
  from   string
}

func NewTextService(log *logger.Logger, accountSid, authToken, fromNumber string) (TextService, error) {
  serviceLog := log.With("service", "TextService")
  if accountSid == "" || authToken == "" || fromNumber == "" {
    return nil, fmt.Errorf("missing Twilio env variables: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER")
  }
  client := twilio.NewRestClientWithParams(twilio.ClientParams{
    Username: accountSid,
    Password: authToken,
  })
  return &textService{
    log:    serviceLog,
    client: client,
    from:   whatsappAddress(fromNumber),
  }, nil
}

func (ts *textService) SendWhatsApp(ctx context.Context, toNumber, body string) error {
  params := &openapi.CreateMessageParams{}
  params.SetTo(whatsappAddress(toNumber))
  params.SetFrom(ts.from)
  params.SetBody(body)

  resp, err := ts.client.Api.CreateMessage(params)
  if err != nil {
    ts.log.Warn("Failed to send WhatsApp message via Twilio", "error", err)
    return err
  }
  sid, status := "", ""
  if resp.Sid != nil {
    sid = *resp.Sid
  }
  if resp.Status != nil {
    status = *resp.Status
  }
  ts.log.Info("Successfully sent WhatsApp message via Twilio", "toNumber", toNumber, "sid", sid, "status", status)
  return nil
}

func whatsappAddress(number string) string {
  number = strings.TrimSpace(number)
  if strings.HasPrefix(number, "whatsapp:") {
    return number
  }
  return "whatsapp:" + number
}
