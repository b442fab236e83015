package outbox

import "context"

// Event is anything published on the bus, identified by its name.
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

// Middleware decorates a Handler, e.g. to scope a logger to one delivery.
type Middleware func(Handler) Handler

// Chain applies mws so that the first one is outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Publisher hands events to interested subscribers. Delivery is
// asynchronous; a nil error only means the event was accepted.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
