package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/freemirror/yamdb-final/internal/config"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer("mail.test", 2525, "user", "secret", "noreply@yamdb.local")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:      []string{"alice@example.com"},
		Subject: "Signup",
		Body:    "Confirmation code: abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, "noreply@yamdb.local", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotBody), "Subject: Signup\r\n")
	assert.Contains(t, string(gotBody), "\r\n\r\nConfirmation code: abc")
}

func TestSMTPMailer_Errors(t *testing.T) {
	m := NewSMTPMailer("mail.test", 25, "", "", "noreply@yamdb.local")
	assert.Nil(t, m.auth)

	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	assert.Error(t, m.Send(context.Background(), Message{}))
	err := m.Send(context.Background(), Message{To: []string{"a@b.c"}})
	assert.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: []string{"a@b.c"}}), context.Canceled)
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core), "noreply@yamdb.local")

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"bob@example.com"}, Subject: "Hi", Body: "code"}))

	entries := logs.FilterMessage("outgoing mail").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Hi", entries[0].ContextMap()["subject"])
}

func TestNew_PicksBackend(t *testing.T) {
	_, isLog := New(&config.Config{MailBackend: "console"}, zap.NewNop()).(*LogMailer)
	assert.True(t, isLog)

	_, isSMTP := New(&config.Config{MailBackend: "smtp", SMTPHost: "localhost", SMTPPort: 25}, zap.NewNop()).(*SMTPMailer)
	assert.True(t, isSMTP)
}
