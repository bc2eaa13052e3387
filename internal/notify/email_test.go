package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/booking-assistant/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "test@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name, got %q", sender.fromName)
	}
}

type stubSendGrid struct {
	status int
	err    error
	last   *mail.SGMailV3
}

func (s *stubSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	s.last = email
	if s.err != nil {
		return nil, s.err
	}
	return &rest.Response{StatusCode: s.status}, nil
}

func TestSendGridSender_Send(t *testing.T) {
	client := &stubSendGrid{status: http.StatusAccepted}
	sender := &SendGridSender{client: client, fromEmail: "desk@acme.test", fromName: "Acme", logger: logging.NewWithWriter(nil, "error")}

	if err := sender.Send(context.Background(), EmailMessage{To: "jane@x.com", Subject: "Hi", Body: "Body"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.last == nil || client.last.Subject != "Hi" {
		t.Fatalf("unexpected message %+v", client.last)
	}
	if len(client.last.Content) != 1 || client.last.Content[0].Type != "text/plain" {
		t.Fatalf("expected a single plain-text part, got %+v", client.last.Content)
	}
	if client.last.ReplyTo != nil {
		t.Fatalf("expected no reply-to, got %+v", client.last.ReplyTo)
	}

	if err := sender.Send(context.Background(), EmailMessage{To: "desk@acme.test", ReplyTo: "jane@x.com", Subject: "New booking"}); err != nil {
		t.Fatalf("send with reply-to: %v", err)
	}
	if client.last.ReplyTo == nil || client.last.ReplyTo.Address != "jane@x.com" {
		t.Fatalf("expected reply-to jane@x.com, got %+v", client.last.ReplyTo)
	}

	client.status = http.StatusUnauthorized
	if err := sender.Send(context.Background(), EmailMessage{To: "jane@x.com"}); err == nil {
		t.Fatal("expected error on 401")
	}
	client.err = errors.New("network")
	if err := sender.Send(context.Background(), EmailMessage{To: "jane@x.com"}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	if err := sender.Send(context.Background(), EmailMessage{To: "recipient@example.com"}); err == nil {
		t.Error("expected error when client is nil")
	}
}

type stubSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (s *stubSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &stubSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "desk@acme.test", FromName: "Acme"}, nil)

	if err := sender.Send(context.Background(), EmailMessage{To: "jane@x.com", Subject: "Hi", Body: "Body"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != `"Acme" <desk@acme.test>` {
		t.Fatalf("unexpected from %q", got)
	}
	if got := aws.ToString(api.input.Content.Simple.Body.Text.Data); got != "Body" {
		t.Fatalf("unexpected body %q", got)
	}
	if api.input.ReplyToAddresses != nil {
		t.Fatalf("expected no reply-to, got %v", api.input.ReplyToAddresses)
	}

	if err := sender.Send(context.Background(), EmailMessage{To: "desk@acme.test", ReplyTo: "jane@x.com"}); err != nil {
		t.Fatalf("send with reply-to: %v", err)
	}
	if len(api.input.ReplyToAddresses) != 1 || api.input.ReplyToAddresses[0] != "jane@x.com" {
		t.Fatalf("unexpected reply-to %v", api.input.ReplyToAddresses)
	}

	api.err = errors.New("throttled")
	if err := sender.Send(context.Background(), EmailMessage{To: "jane@x.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Fatal("expected nil sender")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.c"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}
