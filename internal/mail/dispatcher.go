package mail

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("mail queue closed")

// Dispatcher queues messages and delivers them from a pool of workers.
// Callers never wait on delivery; failures are only logged.
type Dispatcher struct {
	sender Sender
	log    *logrus.Entry
	queue  chan Message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(l *logrus.Logger, sender Sender, size int) *Dispatcher {
	if size < 1 {
		size = 1
	}
	return &Dispatcher{
		sender: sender,
		log:    l.WithField("from", "mail-dispatcher"),
		queue:  make(chan Message, size),
	}
}

// Dispatch enqueues msg without blocking. A full queue drops the message.
func (d *Dispatcher) Dispatch(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.log.WithFields(logrus.Fields{
			"to":       msg.To,
			"template": msg.Template,
		}).Warn("mail queue full, message dropped")
		return nil
	}
}

// Run starts the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"to":       msg.To,
				"template": msg.Template,
			}).Error("send mail")
			continue
		}
		d.log.WithField("to", msg.To).Debug("mail sent")
	}
}

// Close stops accepting messages and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
