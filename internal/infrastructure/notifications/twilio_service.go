package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
)

// messageCreator is the slice of the Twilio REST API used here
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMSSender implements domain.SMSSender
type TwilioSMSSender struct {
	api        messageCreator
	fromNumber string
	log        *zap.Logger
}

// NewTwilioService creates a Twilio backed sender. Without a from number
// messages are logged instead of sent, which is how local setups run.
func NewTwilioService(accountSID, authToken, fromNumber string, log *zap.Logger) domain.SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, fromNumber, log)
}

func newTwilioSender(api messageCreator, fromNumber string, log *zap.Logger) *TwilioSMSSender {
	return &TwilioSMSSender{
		api:        api,
		fromNumber: fromNumber,
		log:        log.With(zap.String("component", "twilio")),
	}
}

func (t *TwilioSMSSender) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fromNumber == "" {
		t.log.Info("sms delivery disabled, dropping message", zap.String("to", to), zap.String("body", message))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		t.log.Debug("sms sent", zap.String("to", to), zap.String("sid", *resp.Sid))
	}
	return nil
}
