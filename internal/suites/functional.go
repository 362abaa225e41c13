package suites

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"wacampaign/internal/campaign"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/testkit"
	"wacampaign/internal/util"
)

type Functional struct {
	opts Options
	api  *mockapi.API
	f    *testkit.Framework
}

func NewFunctional(o Options) *Functional {
	return &Functional{opts: o, api: o.newAPI(), f: o.newFramework(NameFunctional)}
}

func (s *Functional) Name() string { return NameFunctional }

// dispatcher starts every scenario from a clean transport and a closed breaker.
func (s *Functional) dispatcher() *campaign.Dispatcher {
	s.api.Reset()
	return campaign.NewDispatcher(s.api, s.opts.Suites)
}

func (s *Functional) Run(ctx context.Context) (testkit.SuiteRun, error) {
	if err := runStarted(ctx, s.f); err != nil {
		return testkit.SuiteRun{}, err
	}
	s.f.RunTest(ctx, "Send approved template to valid contacts", s.approvedCampaign)
	s.f.RunTest(ctx, "Personalize template variables per contact", s.personalization)
	s.f.RunTest(ctx, "Reject unapproved templates", s.unapprovedTemplate)
	s.f.RunTest(ctx, "Reject invalid phone number", s.invalidPhone)
	s.f.RunTest(ctx, "Scheduled send fires on time", s.scheduled)
	s.f.RunTest(ctx, "Deduplicate contacts before sending", s.duplicates)
	s.f.RunTest(ctx, "Rate limit handled with exponential backoff", s.rateLimitBackoff)
	return s.f.Run(), nil
}

func (s *Functional) approvedCampaign(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	tpl := fixtures.MustTemplate("hello_world")

	ids := map[string]struct{}{}
	for _, c := range fixtures.ValidContacts() {
		resp, err := sendOnce(ctx, d, tpl, c)
		if err != nil {
			return false, fmt.Errorf("send to %s: %w", c.Name, err)
		}
		if !resp.Success || resp.MessageID() == "" {
			return false, nil
		}
		ids[resp.MessageID()] = struct{}{}
	}
	return len(ids) == len(fixtures.ValidContacts()), nil
}

func (s *Functional) personalization(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	tpl := fixtures.MustTemplate("welcome_message")
	c := fixtures.ValidContacts()[0]

	p := campaign.BuildPayload(tpl, c)
	if got := p.BodyTexts(); !slices.Equal(got, []string{c.Name, c.Company}) {
		return false, fmt.Errorf("parameters %v, want [%s %s]", got, c.Name, c.Company)
	}
	body := campaign.RenderBody(tpl, p)
	if !strings.Contains(body, c.Name) || !strings.Contains(body, c.Company) {
		return false, fmt.Errorf("rendered body %q is not personalized", body)
	}
	resp, err := d.Send(ctx, p)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (s *Functional) unapprovedTemplate(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	c := fixtures.ValidContacts()[0]
	for _, name := range []string{"promo_offer", "unverified_template"} {
		resp, err := sendOnce(ctx, d, fixtures.MustTemplate(name), c)
		if kerr := expectKind(err, domain.KindTemplateNotApproved); kerr != nil {
			return false, fmt.Errorf("%s: %w", name, kerr)
		}
		if resp.Success || resp.Data.Error == nil || !strings.Contains(resp.Data.Error.Message, name) {
			return false, fmt.Errorf("%s: error does not identify the template", name)
		}
	}
	return true, nil
}

func (s *Functional) invalidPhone(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	c, ok := fixtures.FindContact(fixtures.InvalidPhone)
	if !ok {
		return false, fmt.Errorf("invalid contact fixture missing")
	}
	if util.ValidatePhoneNumber(c.Phone) {
		return false, fmt.Errorf("validator accepted %s", c.Phone)
	}
	resp, err := sendOnce(ctx, d, fixtures.MustTemplate("hello_world"), c)
	if kerr := expectKind(err, domain.KindInvalidPhone); kerr != nil {
		return false, kerr
	}
	return !resp.Success, nil
}

func (s *Functional) scheduled(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	p := campaign.BuildPayload(fixtures.MustTemplate("hello_world"), fixtures.ValidContacts()[1])

	res := <-campaign.Schedule(ctx, s.opts.Suites.ScheduleOffset, func(ctx context.Context) (domain.SendResponse, error) {
		return d.Send(ctx, p)
	})
	if res.Err != nil {
		return false, res.Err
	}
	if drift := res.Drift(); drift > s.opts.Suites.ScheduleTolerance {
		return false, fmt.Errorf("fired %s off schedule, tolerance %s", drift, s.opts.Suites.ScheduleTolerance)
	}
	return res.Response.Success, nil
}

func (s *Functional) duplicates(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	valid := fixtures.ValidContacts()
	withDupes := append([]domain.TestContact{}, valid...)
	dup := valid[0]
	dup.Phone = "+91 98765-43210"
	withDupes = append(withDupes, dup, valid[2])

	unique := campaign.RemoveDuplicateContacts(withDupes)
	if len(unique) != len(valid) {
		return false, fmt.Errorf("deduped to %d contacts, want %d", len(unique), len(valid))
	}
	tpl := fixtures.MustTemplate("hello_world")
	for _, c := range unique {
		if _, err := sendOnce(ctx, d, tpl, c); err != nil {
			return false, err
		}
	}
	return len(s.api.Messages()) == len(unique), nil
}

func (s *Functional) rateLimitBackoff(ctx context.Context) (bool, error) {
	d := s.dispatcher()
	tpl := fixtures.MustTemplate("hello_world")
	valid := fixtures.ValidContacts()

	batch := make([]domain.SendPayload, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, campaign.BuildPayload(tpl, valid[i%len(valid)]))
	}

	var limited []domain.SendPayload
	for _, o := range d.SendBatch(ctx, batch) {
		if domain.KindOf(o.Err) == domain.KindRateLimited {
			limited = append(limited, o.Payload)
		}
	}
	if len(limited) == 0 {
		return false, fmt.Errorf("batch of %d never hit the rate limit", len(batch))
	}

	recovered := 0
	for _, p := range limited {
		if out := d.SendWithRetry(ctx, p); out.Err == nil {
			recovered++
		}
	}
	return recovered > 0, nil
}
