package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrNotConfigured = errors.New("notifier not configured")

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends text messages through Twilio.
type SMS struct {
	api  messageCreator
	from string
	log  logrus.FieldLogger
}

func NewSMS(accountSID, authToken, from string, log logrus.FieldLogger) *SMS {
	s := &SMS{from: from, log: log.WithField("channel", "sms")}
	if accountSID != "" && authToken != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
		s.api = client.Api
	}
	return s
}

func (s *SMS) SendSMS(_ context.Context, to, body string) error {
	if s.api == nil || s.from == "" {
		return ErrNotConfigured
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return err
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.log.WithField("sid", sid).Info("sms sent")
	return nil
}
