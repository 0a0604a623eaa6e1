package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Send after Close.
var ErrQueueClosed = errors.New("mail queue closed")

// sendTimeout bounds one delivery attempt by a worker.
const sendTimeout = 30 * time.Second

// Queue is a Mailer that hands messages to a fixed set of workers, so
// callers never wait on the relay. Delivery failures are logged.
type Queue struct {
	next    Mailer
	log     *zap.Logger
	queue   chan Message
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.RWMutex
}

// NewQueue starts workers goroutines delivering through next.
func NewQueue(next Mailer, workers int, log *zap.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		next:   next,
		log:    log,
		queue:  make(chan Message, workers*16),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	log.Debug("Mail queue started", zap.Int("workers", workers))
	return q
}

// Send enqueues msg. It blocks only while the buffer is full, and gives up when ctx ends.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the queued ones to be delivered.
// Once ctx ends, whatever is still queued is dropped.
func (q *Queue) Close(ctx context.Context) error {
	q.closeMu.Lock()
	if !q.closed {
		close(q.queue)
		q.closed = true
	}
	q.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for msg := range q.queue {
		if q.ctx.Err() != nil {
			q.log.Warn("Mail dropped on shutdown", zap.Strings("to", msg.To))
			continue
		}
		ctx, cancel := context.WithTimeout(q.ctx, sendTimeout)
		if err := q.next.Send(ctx, msg); err != nil {
			q.log.Warn("Mail delivery failed",
				zap.Int("worker", id),
				zap.Strings("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
		}
		cancel()
	}
}
