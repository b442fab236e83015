package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
)

const DefaultSuccessRate = 0.7

var ErrInvalidSuccessRate = errors.New("gateway: success rate must be within [0, 1]")

// Simulated approves a random share of charges, controlled by the success rate.
type Simulated struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	latency     time.Duration
	log         observability.Logger
}

type SimulatedOption func(*Simulated)

// WithLatency delays every charge by d, returning early if ctx ends first.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

// WithSeed makes the accept/decline sequence reproducible.
func WithSeed(seed int64) SimulatedOption {
	return func(s *Simulated) { s.random = rand.New(rand.NewSource(seed)) }
}

func NewSimulated(successRate float64, logger observability.Logger, opts ...SimulatedOption) (*Simulated, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	s := &Simulated{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logger.With(observability.F("component", componentGateway)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.SetSuccessRate(successRate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulated) SetSuccessRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSuccessRate, rate)
	}
	s.mu.Lock()
	s.successRate = rate
	s.mu.Unlock()
	return nil
}

func (s *Simulated) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate
}

func (s *Simulated) Charge(ctx context.Context, orderID string, amount money.Money) (bool, error) {
	if orderID == "" {
		return false, errors.New("gateway: order id is required")
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	approved := s.successRate > 0 && s.random.Float64() < s.successRate
	s.mu.Unlock()

	logger := logctx.FromOr(ctx, s.log)
	fields := []observability.Field{
		observability.F("gateway", "simulated"),
		observability.F("order_id", orderID),
		observability.F("amount", amount.String()),
	}
	if approved {
		logger.Info("payment_charged", fields...)
	} else {
		logger.Warn("payment_declined", fields...)
	}
	return approved, nil
}
