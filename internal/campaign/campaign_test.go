package campaign

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacampaign/internal/config"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/mockapi"
)

type scriptedSender struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedSender) SendMessage(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return domain.SendResponse{}, s.errs[i]
	}
	return domain.SendResponse{Success: true, Data: domain.SendData{Messages: []domain.MessageRef{{ID: "wamid.x"}}}}, nil
}

func fastSuites() config.Suites {
	cfg := config.DefaultSuites()
	cfg.BackoffBase = time.Millisecond
	cfg.SendRPS = 0
	return cfg
}

func TestRemoveDuplicateContactsIdempotent(t *testing.T) {
	cs := fixtures.ValidContacts()
	dupe := cs[1]
	dupe.Phone = "+91 98765 43211"
	in := append(append([]domain.TestContact{}, cs...), cs[0], dupe)

	once := RemoveDuplicateContacts(in)
	twice := RemoveDuplicateContacts(once)
	assert.Len(t, once, 3)
	assert.Equal(t, once, twice)
	assert.Equal(t, "Naveen", once[0].Name)
	assert.Empty(t, RemoveDuplicateContacts(nil))
}

func TestFilterOptedOutIsSetDifference(t *testing.T) {
	all := fixtures.Contacts()
	reg := NewOptOutRegistry(fixtures.OptedOutPhone, "+91 98765 43211")

	allowed, excluded := FilterOptedOut(all, reg)
	assert.Len(t, excluded, 2)

	var got []string
	for _, c := range allowed {
		got = append(got, c.Phone)
	}
	var want []string
	for _, c := range all {
		if c.Phone != fixtures.OptedOutPhone && c.Phone != "919876543211" {
			want = append(want, c.Phone)
		}
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)

	reg.Remove("919876543211")
	assert.False(t, reg.Contains("919876543211"))
	assert.Equal(t, []string{fixtures.OptedOutPhone}, reg.Phones())
}

func TestBuildPayloadPersonalizes(t *testing.T) {
	tpl := fixtures.MustTemplate("welcome_message")
	c := fixtures.ValidContacts()[0]

	p := BuildPayload(tpl, c)
	assert.Equal(t, []string{c.Name, c.Company}, p.BodyTexts())
	assert.Equal(t, "Hi Naveen, thanks for joining us from Acme Corp!", RenderBody(tpl, p))

	plain := BuildPayload(fixtures.MustTemplate("hello_world"), c)
	assert.Empty(t, plain.Template.Components)
	assert.Equal(t, "en_US", plain.Template.Language.Code)
}

func TestBackoffDoubles(t *testing.T) {
	d := &Dispatcher{BackoffBase: time.Second}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		[]time.Duration{d.Backoff(0), d.Backoff(1), d.Backoff(2)})
}

func TestSendWithRetryRecoversFromRateLimit(t *testing.T) {
	s := &scriptedSender{errs: []error{domain.ErrRateLimited(), domain.ErrRateLimited()}}
	d := NewDispatcher(s, fastSuites())

	out := d.SendWithRetry(context.Background(), domain.SendPayload{To: "1"})
	require.NoError(t, out.Err)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, out.Response.Success)
}

func TestSendWithRetryGivesUp(t *testing.T) {
	rl := domain.ErrRateLimited()
	s := &scriptedSender{errs: []error{rl, rl, rl, rl, rl}}
	d := NewDispatcher(s, fastSuites())

	out := d.SendWithRetry(context.Background(), domain.SendPayload{To: "1"})
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(out.Err))
	assert.Equal(t, 4, out.Attempts)
}

func TestSendWithRetryDoesNotRetryValidation(t *testing.T) {
	s := &scriptedSender{errs: []error{domain.ErrUserBlocked("1")}}
	d := NewDispatcher(s, fastSuites())

	out := d.SendWithRetry(context.Background(), domain.SendPayload{To: "1"})
	assert.Equal(t, domain.KindUserBlocked, domain.KindOf(out.Err))
	assert.Equal(t, 1, out.Attempts)
}

func TestSendBatchAgainstMockSurfacesRateLimit(t *testing.T) {
	sim := config.DefaultSimulation()
	api := mockapi.New(sim, mockapi.WithRand(mockapi.FixedRand(0.99)))
	d := NewDispatcher(api, fastSuites())

	tpl := fixtures.MustTemplate("hello_world")
	var ps []domain.SendPayload
	for i := 0; i < 5; i++ {
		ps = append(ps, BuildPayload(tpl, fixtures.ValidContacts()[i%3]))
	}
	outs := d.SendBatch(context.Background(), ps)
	require.Len(t, outs, 5)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(outs[3].Err))

	retry := d.SendWithRetry(context.Background(), outs[3].Payload)
	assert.NoError(t, retry.Err)
}

func TestScheduleFiresNearOffset(t *testing.T) {
	s := &scriptedSender{}
	start := time.Now()
	res := <-Schedule(context.Background(), 30*time.Millisecond, func(ctx context.Context) (domain.SendResponse, error) {
		return s.SendMessage(ctx, domain.SendPayload{})
	})
	require.NoError(t, res.Err)
	assert.GreaterOrEqual(t, res.FiredAt.Sub(start), 30*time.Millisecond)
	assert.Less(t, res.Drift(), 200*time.Millisecond)
}

func TestScheduleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Schedule(ctx, time.Hour, func(context.Context) (domain.SendResponse, error) {
		t.Fatal("must not fire")
		return domain.SendResponse{}, nil
	})
	cancel()
	res := <-ch
	assert.ErrorIs(t, res.Err, context.Canceled)
}
