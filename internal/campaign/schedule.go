package campaign

import (
	"context"
	"time"

	"wacampaign/internal/domain"
)

type ScheduledResult struct {
	ScheduledFor time.Time
	FiredAt      time.Time
	Response     domain.SendResponse
	Err          error
}

// Drift is how far the send fired from its scheduled instant.
func (r ScheduledResult) Drift() time.Duration {
	d := r.FiredAt.Sub(r.ScheduledFor)
	if d < 0 {
		return -d
	}
	return d
}

// Schedule runs send after delay. The channel yields exactly one result,
// carrying ctx.Err() if the context ends first.
func Schedule(ctx context.Context, delay time.Duration, send func(context.Context) (domain.SendResponse, error)) <-chan ScheduledResult {
	out := make(chan ScheduledResult, 1)
	at := time.Now().Add(delay)
	t := time.NewTimer(delay)

	go func() {
		defer close(out)
		select {
		case <-ctx.Done():
			t.Stop()
			out <- ScheduledResult{ScheduledFor: at, FiredAt: time.Now(), Err: ctx.Err()}
		case fired := <-t.C:
			resp, err := send(ctx)
			out <- ScheduledResult{ScheduledFor: at, FiredAt: fired, Response: resp, Err: err}
		}
	}()
	return out
}
