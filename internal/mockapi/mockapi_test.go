package mockapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacampaign/internal/config"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
)

func fastSim() config.Simulation {
	cfg := config.DefaultSimulation()
	cfg.DeliveryDelayMin = 5 * time.Millisecond
	cfg.DeliveryDelayMax = 10 * time.Millisecond
	cfg.ReadDelayMin = 5 * time.Millisecond
	cfg.ReadDelayMax = 10 * time.Millisecond
	return cfg
}

func payload(to, tpl string) domain.SendPayload {
	return domain.SendPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template:         domain.TemplatePayload{Name: tpl, Language: domain.LanguagePayload{Code: "en_US"}},
	}
}

func TestRateLimitCounterResetsAfterRejection(t *testing.T) {
	api := New(fastSim(), WithRand(FixedRand(0.99)))
	ctx := context.Background()
	to := fixtures.ValidContacts()[0].Phone

	var kinds []domain.ErrorKind
	for i := 0; i < 8; i++ {
		_, err := api.SendMessage(ctx, payload(to, "hello_world"))
		kinds = append(kinds, domain.KindOf(err))
	}
	rl := domain.KindRateLimited
	assert.Equal(t, []domain.ErrorKind{"", "", "", rl, "", "", "", rl}, kinds)
}

func TestValidationPriority(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		to   string
		tpl  string
		want domain.ErrorKind
	}{
		{"rejected template beats blocked phone", fixtures.BlockedPhone, "unverified_template", domain.KindTemplateNotApproved},
		{"pending template", fixtures.ValidContacts()[0].Phone, "promo_offer", domain.KindTemplateNotApproved},
		{"invalid phone", fixtures.InvalidPhone, "hello_world", domain.KindInvalidPhone},
		{"blocked", fixtures.BlockedPhone, "hello_world", domain.KindUserBlocked},
		{"opted out", fixtures.OptedOutPhone, "hello_world", domain.KindOptedOut},
		{"unknown template passes", fixtures.ValidContacts()[1].Phone, "not_registered", ""},
		{"unknown phone passes", "15550001111", "hello_world", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := New(fastSim(), WithRand(FixedRand(0.99)))
			resp, err := api.SendMessage(ctx, payload(tc.to, tc.tpl))
			assert.Equal(t, tc.want, domain.KindOf(err))
			assert.Equal(t, tc.want == "", resp.Success)
			if tc.want != "" {
				require.NotNil(t, resp.Data.Error)
				assert.Equal(t, tc.want, resp.Data.Error.Kind)
				assert.Empty(t, api.Messages())
			}
		})
	}
}

func TestBlockedErrorMentionsBlocked(t *testing.T) {
	api := New(fastSim())
	_, err := api.SendMessage(context.Background(), payload(fixtures.BlockedPhone, "hello_world"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "blocked"))
}

func TestStrictPhoneValidation(t *testing.T) {
	cfg := fastSim()
	cfg.StrictPhoneValidation = true
	api := New(cfg, WithRand(FixedRand(0.99)))
	_, err := api.SendMessage(context.Background(), payload("999", "hello_world"))
	assert.Equal(t, domain.KindInvalidPhone, domain.KindOf(err))
}

func TestMessageIDsUniqueWithinEpoch(t *testing.T) {
	cfg := fastSim()
	cfg.RateLimitThreshold = 1000
	api := New(cfg, WithRand(FixedRand(0.99)))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		resp, err := api.SendMessage(context.Background(), payload("15550001111", "hello_world"))
		require.NoError(t, err)
		id := resp.MessageID()
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, api.Messages(), 200)
}

func TestDeliveryThenReadAreOrdered(t *testing.T) {
	var mu sync.Mutex
	var heard []domain.DeliveryStatus
	api := New(fastSim(), WithRand(FixedRand(0)), WithStatusListener(func(r domain.DeliveryReport) {
		mu.Lock()
		heard = append(heard, r.Status)
		mu.Unlock()
	}))

	resp, err := api.SendMessage(context.Background(), payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
	require.NoError(t, err)
	id := resp.MessageID()

	require.Eventually(t, func() bool { return api.HasStatus(id, domain.StatusRead) }, time.Second, 5*time.Millisecond)
	reps := api.ReportsFor(id)
	require.Len(t, reps, 2)
	assert.Equal(t, domain.StatusDelivered, reps[0].Status)
	assert.Equal(t, domain.StatusRead, reps[1].Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.DeliveryStatus{domain.StatusDelivered, domain.StatusRead}, heard)
}

func TestUnresolvedMessagesStaySilent(t *testing.T) {
	api := New(fastSim(), WithRand(FixedRand(0.95)))
	_, err := api.SendMessage(context.Background(), payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, api.DeliveryReports())
}

func TestDeliveredButNotRead(t *testing.T) {
	// 0.8 is under the delivery probability but over the read probability.
	api := New(fastSim(), WithRand(FixedRand(0.8)))
	resp, err := api.SendMessage(context.Background(), payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return api.HasStatus(resp.MessageID(), domain.StatusDelivered) }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.False(t, api.HasStatus(resp.MessageID(), domain.StatusRead))
}

func TestResetCancelsPendingReports(t *testing.T) {
	cfg := fastSim()
	cfg.DeliveryDelayMin = 20 * time.Millisecond
	cfg.DeliveryDelayMax = 20 * time.Millisecond
	api := New(cfg, WithRand(FixedRand(0)))

	_, err := api.SendMessage(context.Background(), payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
	require.NoError(t, err)
	api.Reset()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, api.Messages())
	assert.Empty(t, api.DeliveryReports())

	// counter is back to zero: three more sends pass
	for i := 0; i < 3; i++ {
		_, err := api.SendMessage(context.Background(), payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
		require.NoError(t, err)
	}
}

func TestSendHonorsCanceledContext(t *testing.T) {
	api := New(fastSim())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := api.SendMessage(ctx, payload(fixtures.ValidContacts()[0].Phone, "hello_world"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.Messages())
}
