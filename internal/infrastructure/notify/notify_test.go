package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeTwilio struct {
	got *twilioApi.CreateMessageParams
	err error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.got = p
	sid := "SM1"
	return &twilioApi.ApiV2010Message{Sid: &sid}, f.err
}

func TestSMS_Send(t *testing.T) {
	fake := &fakeTwilio{}
	s := &SMS{api: fake, from: "+15550001111", log: quiet()}
	if err := s.SendSMS(context.Background(), "+919876543210", "sign here"); err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if *fake.got.To != "+919876543210" || *fake.got.From != "+15550001111" || *fake.got.Body != "sign here" {
		t.Fatalf("params = %+v", fake.got)
	}
}

func TestSMS_NotConfigured(t *testing.T) {
	s := NewSMS("", "", "", quiet())
	if err := s.SendSMS(context.Background(), "x", "y"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestEmail_Send(t *testing.T) {
	var raw bytes.Buffer
	e := &Email{from: "loans@example.com", log: quiet(), send: func(m *gomail.Message) error {
		_, err := m.WriteTo(&raw)
		return err
	}}
	if err := e.SendEmail(context.Background(), "asha@example.com", "Sign your agreement", `<p><a href="https://sign.example.com/sign/t">Review and sign</a></p>`); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	out := raw.String()
	for _, want := range []string{"To: asha@example.com", "Subject: Sign your agreement", "From: loans@example.com", "Content-Type: text/html"} {
		if !strings.Contains(out, want) {
			t.Fatalf("message missing %q:\n%s", want, out)
		}
	}
}

func TestEmail_NotConfigured(t *testing.T) {
	e := NewEmail("", 587, "", "", "", quiet())
	if err := e.SendEmail(context.Background(), "a@b.co", "s", "b"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestNewEmail_ConfiguredDialer(t *testing.T) {
	e := NewEmail("smtp.example.com", 587, "loans@example.com", "pw", "", quiet())
	if e.send == nil {
		t.Fatal("dialer not wired")
	}
	if e.from != "loans@example.com" {
		t.Fatalf("from = %q, want the SMTP user", e.from)
	}
}
