package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestQueue_DeliversEverythingBeforeClose(t *testing.T) {
	next := &recordingMailer{}
	q := NewQueue(next, 3, nil)

	for i := 0; i < 20; i++ {
		require.NoError(t, q.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hi"}))
	}
	require.NoError(t, q.Close(context.Background()))

	assert.Equal(t, 20, next.count())
}

func TestQueue_SendAfterClose(t *testing.T) {
	q := NewQueue(&recordingMailer{}, 1, nil)
	require.NoError(t, q.Close(context.Background()))
	// closing twice is fine
	require.NoError(t, q.Close(context.Background()))

	err := q.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &recordingMailer{err: errors.New("relay down")}
	q := NewQueue(next, 1, zap.New(core))

	require.NoError(t, q.Send(context.Background(), Message{To: []string{"b@example.com"}, Subject: "code"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))

	entries := logs.FilterMessage("Mail delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "code", entries[0].ContextMap()["subject"])
}
