package campaign

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"wacampaign/internal/config"
	"wacampaign/internal/domain"
	"wacampaign/internal/observability"
)

type Sender interface {
	SendMessage(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error)
}

// Dispatcher sends through an optional limiter and breaker and retries
// rate-limited sends with doubling backoff. Other errors are returned as is.
type Dispatcher struct {
	Sender      Sender
	Limiter     *rate.Limiter
	Breaker     *gobreaker.CircuitBreaker
	BackoffBase time.Duration
	MaxRetries  int
}

type Outcome struct {
	Payload  domain.SendPayload
	Response domain.SendResponse
	Attempts int
	Err      error
}

func NewDispatcher(s Sender, cfg config.Suites) *Dispatcher {
	d := &Dispatcher{
		Sender:      s,
		BackoffBase: cfg.BackoffBase,
		MaxRetries:  cfg.MaxRetries,
		Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "whatsapp-send",
			MaxRequests: 1,
			Timeout:     cfg.BackoffBase * 4,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
			// only throttling counts against the breaker; validation errors are the caller's problem
			IsSuccessful: func(err error) bool { return err == nil || !domain.IsRetryable(err) },
		}),
	}
	if cfg.SendRPS > 0 {
		burst := cfg.SendBurst
		if burst < 1 {
			burst = 1
		}
		d.Limiter = rate.NewLimiter(rate.Limit(cfg.SendRPS), burst)
	}
	return d
}

// Backoff is BackoffBase * 2^attempt.
func (d *Dispatcher) Backoff(attempt int) time.Duration {
	base := d.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	return base * time.Duration(1<<attempt)
}

// Send makes exactly one attempt.
func (d *Dispatcher) Send(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return domain.SendResponse{}, err
		}
	}
	if d.Breaker == nil {
		return d.Sender.SendMessage(ctx, p)
	}
	res, err := d.Breaker.Execute(func() (interface{}, error) {
		return d.Sender.SendMessage(ctx, p)
	})
	resp, _ := res.(domain.SendResponse)
	return resp, err
}

// SendWithRetry retries only rate-limit errors, up to MaxRetries extra attempts.
// An open breaker is not retryable and fails fast.
func (d *Dispatcher) SendWithRetry(ctx context.Context, p domain.SendPayload) Outcome {
	for attempt := 0; ; attempt++ {
		resp, err := d.Send(ctx, p)
		out := Outcome{Payload: p, Response: resp, Attempts: attempt + 1, Err: err}
		if err == nil || !domain.IsRetryable(err) || attempt >= d.MaxRetries {
			return out
		}

		wait := d.Backoff(attempt)
		observability.DispatchRetries.Inc()
		slog.Warn("send rate limited, backing off", "to", p.To, "attempt", attempt+1, "wait", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			out.Err = ctx.Err()
			return out
		case <-t.C:
		}
	}
}

// SendBatch sends each payload once, in order, without retrying.
func (d *Dispatcher) SendBatch(ctx context.Context, ps []domain.SendPayload) []Outcome {
	out := make([]Outcome, 0, len(ps))
	for _, p := range ps {
		resp, err := d.Send(ctx, p)
		out = append(out, Outcome{Payload: p, Response: resp, Attempts: 1, Err: err})
	}
	return out
}
