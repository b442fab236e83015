package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/orderpay/internal/domain/outbox"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
)

const (
	componentOutbox       = "outbox"
	DefaultBuffer         = 1024
	DefaultConcurrency    = 8
	DefaultHandlerTimeout = 30 * time.Second
)

// ErrStopped is returned by Publish once the bus has been stopped.
var ErrStopped = errors.New("outbox: bus stopped")

// Bus is an in-memory, non-durable event bus. Events are queued and fanned
// out to every handler subscribed to their name.
type Bus struct {
	mu             sync.RWMutex
	subs           map[string][]domoutbox.Handler
	queue          chan domoutbox.Event
	startOnce      sync.Once
	stopOnce       sync.Once
	stateMu        sync.RWMutex // guards stopped and closing queue
	stopped        bool
	cancel         context.CancelFunc
	done           chan struct{}
	concurrency    int
	handlerTimeout time.Duration
	log            observability.Logger
}

type Option func(*Bus)

func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan domoutbox.Event, n)
		}
	}
}

// WithConcurrency caps how many handlers of a single event run at once.
func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan domoutbox.Event, DefaultBuffer),
		done:           make(chan struct{}),
		concurrency:    DefaultConcurrency,
		handlerTimeout: DefaultHandlerTimeout,
		log:            logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop closes the queue, waits for queued events to drain or ctx to end,
// then cancels in-flight handlers.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.stateMu.Lock()
		b.stopped = true
		close(b.queue)
		b.stateMu.Unlock()

		started := b.cancel != nil
		if started {
			select {
			case <-b.done:
			case <-ctx.Done():
			}
			b.cancel()
		}
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))

	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.stopped {
		return ErrStopped
	}

	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted",
			observability.Err(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()
	logger := b.log.With(observability.F("event", name))

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	ctx = logctx.With(ctx, logger)

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error",
					observability.Err(err),
				)
			}
		}()
	}

	wg.Wait()

	logger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
