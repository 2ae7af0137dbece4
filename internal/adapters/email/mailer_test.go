package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMailer(t *testing.T) {
	tests := []struct {
		name     string
		config   MailerConfig
		wantType any
		wantErr  bool
	}{
		{name: "ses", config: MailerConfig{Provider: "ses", FromAddress: "news@example.com", SES: SESConfig{Region: "eu-west-1"}}, wantType: &sesMailer{}},
		{name: "ses without sender", config: MailerConfig{Provider: "ses"}, wantErr: true},
		{name: "noop", config: MailerConfig{Provider: "noop"}, wantType: &noopMailer{}},
		{name: "empty provider", config: MailerConfig{}, wantType: &noopMailer{}},
		{name: "unknown provider", config: MailerConfig{Provider: "carrier-pigeon"}, wantType: &noopMailer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailer(tt.config, discardLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, m)
		})
	}
}

func TestSESMailer_Send(t *testing.T) {
	t.Run("builds the message", func(t *testing.T) {
		client := &fakeSES{}
		m := &sesMailer{client: client, fromAddress: "news@example.com", fromName: "Site News", logger: discardLogger()}

		require.NoError(t, m.Send("a@example.com", "Subject", "<p>hi</p>", "hi"))
		require.NotNil(t, client.input)
		assert.Equal(t, "Site News <news@example.com>", aws.ToString(client.input.Source))
		assert.Equal(t, []string{"a@example.com"}, client.input.Destination.ToAddresses)
		assert.Equal(t, "Subject", aws.ToString(client.input.Message.Subject.Data))
		assert.Equal(t, "<p>hi</p>", aws.ToString(client.input.Message.Body.Html.Data))
		assert.Equal(t, "hi", aws.ToString(client.input.Message.Body.Text.Data))
	})

	t.Run("text only", func(t *testing.T) {
		client := &fakeSES{}
		m := &sesMailer{client: client, fromAddress: "news@example.com", logger: discardLogger()}

		require.NoError(t, m.Send("a@example.com", "Subject", "", "hi"))
		assert.Equal(t, "news@example.com", aws.ToString(client.input.Source))
		assert.Nil(t, client.input.Message.Body.Html)
	})

	t.Run("client error is wrapped", func(t *testing.T) {
		boom := errors.New("throttled")
		m := &sesMailer{client: &fakeSES{err: boom}, fromAddress: "news@example.com", logger: discardLogger()}
		require.ErrorIs(t, m.Send("a@example.com", "S", "", "t"), boom)
	})
}
