package mail

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultWorkers   = 2
	DefaultQueueSize = 64
)

type job struct {
	ctx context.Context
	msg Message
}

// Dispatcher queues messages for a pool of workers. Dispatch never blocks: a full queue or a
// closed dispatcher drops the message and logs it.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	queue   chan job
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	timeout   time.Duration
	workers   int
	queueSize int
}

// WithTimeout bounds a single delivery attempt
func WithTimeout(d time.Duration) DispatcherOption {
	return func(o *dispatcherOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithWorkers(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		if n >= 0 {
			o.queueSize = n
		}
	}
}

func NewDispatcher(sender Sender, options ...DispatcherOption) *Dispatcher {
	opts := dispatcherOptions{
		timeout:   DefaultTimeout,
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range options {
		opt(&opts)
	}

	d := &Dispatcher{
		sender:  sender,
		timeout: opts.timeout,
		queue:   make(chan job, opts.queueSize),
	}
	d.wg.Add(opts.workers)
	for range opts.workers {
		go d.worker()
	}
	return d
}

// Dispatch queues msg for delivery. The request context's values are kept but not its
// cancellation, the message outlives the request.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if err := d.enqueue(job{ctx: context.WithoutCancel(ctx), msg: msg}); err != nil {
		log.Err(err).Str("subject", msg.Subject).Msg("mail dropped")
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return apperrors.ErrMailClosed
	}
	select {
	case d.queue <- j:
		return nil
	default:
		return apperrors.ErrMailQueueFull
	}
}

// Close stops accepting messages and waits for the queued ones to be delivered or for ctx to end
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "[Dispatcher.Close] queued mail not delivered")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("mail sender panicked")
		}
	}()

	start := time.Now()
	if err := d.sender.Send(ctx, j.msg); err != nil {
		log.Err(err).Str("subject", j.msg.Subject).Dur("elapsed", time.Since(start)).Msg("mail delivery failed")
		return
	}
	log.Debug().Str("subject", j.msg.Subject).Dur("elapsed", time.Since(start)).Msg("mail delivered")
}
