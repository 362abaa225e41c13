package suites

import (
	"context"
	"fmt"

	"wacampaign/internal/campaign"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/testkit"
	"wacampaign/internal/util"
	"wacampaign/internal/webhook"
)

// Webhook wires the transport's simulated reports into a processor, the way
// the platform would post them to the webhook endpoint.
type Webhook struct {
	opts Options
	proc *webhook.Processor
	api  *mockapi.API
	f    *testkit.Framework
}

func NewWebhook(o Options) *Webhook {
	proc := webhook.NewProcessor()
	return &Webhook{
		opts: o,
		proc: proc,
		api:  o.newAPI(mockapi.WithStatusListener(webhook.Emitter(proc))),
		f:    o.newFramework(NameWebhook),
	}
}

func (s *Webhook) Name() string { return NameWebhook }

func (s *Webhook) reset() *campaign.Dispatcher {
	s.api.Reset()
	s.proc.Reset()
	return campaign.NewDispatcher(s.api, s.opts.Suites)
}

func (s *Webhook) Run(ctx context.Context) (testkit.SuiteRun, error) {
	if err := runStarted(ctx, s.f); err != nil {
		return testkit.SuiteRun{}, err
	}
	s.f.RunTest(ctx, "Delivery report lifecycle", s.lifecycle)
	s.f.RunTest(ctx, "Failed messages are stored", s.failedStorage)
	s.f.RunTest(ctx, "Inbound replies thread to the outbound message", s.threading)
	s.f.RunTest(ctx, "Every simulated report reaches the webhook", s.emittedReports)
	return s.f.Run(), nil
}

func (s *Webhook) lifecycle(ctx context.Context) (bool, error) {
	d := s.reset()
	tpl := fixtures.MustTemplate("hello_world")

	var ids []string
	for _, c := range fixtures.ValidContacts() {
		resp, err := sendOnce(ctx, d, tpl, c)
		if err != nil {
			return false, err
		}
		id := resp.MessageID()
		ids = append(ids, id)
		s.proc.Process(webhook.StatusEvent(id, util.NormalizePhone(c.Phone), domain.StatusSent))
	}

	if err := testkit.Wait(ctx, s.opts.Suites.DeliveryWait); err != nil {
		return false, err
	}

	delivered := 0
	for _, id := range ids {
		var sent, dlv bool
		for _, r := range s.proc.ReportsFor(id) {
			switch r.Status {
			case domain.StatusSent:
				sent = true
			case domain.StatusDelivered:
				dlv = true
			}
		}
		if !sent {
			return false, fmt.Errorf("message %s has no sent report", id)
		}
		if dlv {
			delivered++
		}
	}
	// delivery is probabilistic; a silent message is an expected outcome
	if delivered < len(ids)-1 {
		return false, fmt.Errorf("only %d of %d messages delivered", delivered, len(ids))
	}
	return true, nil
}

func (s *Webhook) failedStorage(ctx context.Context) (bool, error) {
	d := s.reset()
	tpl := fixtures.MustTemplate("hello_world")

	for _, phone := range []string{fixtures.BlockedPhone, fixtures.InvalidPhone} {
		c, _ := fixtures.FindContact(phone)
		_, err := sendOnce(ctx, d, tpl, c)
		if err == nil {
			return false, fmt.Errorf("send to %s unexpectedly succeeded", phone)
		}
		s.proc.Process(webhook.FailureEvent(util.NewMessageID(), phone, err.Error()))
	}

	for _, phone := range []string{fixtures.BlockedPhone, fixtures.InvalidPhone} {
		if n := len(s.proc.FailedFor(phone)); n != 1 {
			return false, fmt.Errorf("%d failed entries for %s, want 1", n, phone)
		}
	}
	return true, nil
}

func (s *Webhook) threading(ctx context.Context) (bool, error) {
	d := s.reset()
	tpl := fixtures.MustTemplate("hello_world")
	c := fixtures.ValidContacts()[0]
	phone := util.NormalizePhone(c.Phone)

	p := campaign.BuildPayload(tpl, c)
	resp, err := d.Send(ctx, p)
	if err != nil {
		return false, err
	}
	id := resp.MessageID()
	s.proc.RecordOutbound(id, phone, campaign.RenderBody(tpl, p))

	s.proc.Process(webhook.IncomingMessageEvent(phone, "Yes, I'm interested!", id))
	s.proc.Process(webhook.IncomingMessageEvent(phone, "When does the offer end?", ""))

	var out, in, linked int
	for _, t := range s.proc.ThreadFor(phone) {
		switch t.Direction {
		case domain.DirectionOutbound:
			out++
		case domain.DirectionInbound:
			in++
			if t.ContextID == id {
				linked++
			}
		}
	}
	if out != 1 || in != 2 || linked != 1 {
		return false, fmt.Errorf("thread has %d outbound, %d inbound, %d linked", out, in, linked)
	}
	return true, nil
}

func (s *Webhook) emittedReports(ctx context.Context) (bool, error) {
	d := s.reset()
	tpl := fixtures.MustTemplate("hello_world")
	for _, c := range fixtures.ValidContacts() {
		if _, err := sendOnce(ctx, d, tpl, c); err != nil {
			return false, err
		}
	}
	if err := testkit.Wait(ctx, s.opts.Suites.DeliveryWait); err != nil {
		return false, err
	}
	// listeners run after the transport records, so allow them to catch up
	pctx, cancel := context.WithTimeout(ctx, s.opts.Suites.ReadWait)
	defer cancel()
	ok := pollUntil(pctx, s.opts.Suites.DeliveryWait/10+1, func() bool {
		return len(s.proc.DeliveryReports()) == len(s.api.DeliveryReports())
	})
	if !ok {
		return false, fmt.Errorf("webhook saw %d reports, transport produced %d",
			len(s.proc.DeliveryReports()), len(s.api.DeliveryReports()))
	}
	return true, nil
}
