package suites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"wacampaign/internal/auth"
	"wacampaign/internal/campaign"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/testkit"
	"wacampaign/internal/util"
	"wacampaign/internal/webhook"
)

type Security struct {
	opts    Options
	api     *mockapi.API
	issuer  *auth.TokenIssuer
	gateway *auth.Gateway
	f       *testkit.Framework
}

func NewSecurity(o Options) *Security {
	api := o.newAPI()
	issuer := auth.NewTokenIssuer(o.Suites.TokenSecret, o.Suites.TokenTTL)
	return &Security{
		opts:    o,
		api:     api,
		issuer:  issuer,
		gateway: &auth.Gateway{Issuer: issuer, Sender: api},
		f:       o.newFramework(NameSecurity),
	}
}

func (s *Security) Name() string { return NameSecurity }

func (s *Security) Run(ctx context.Context) (testkit.SuiteRun, error) {
	if err := runStarted(ctx, s.f); err != nil {
		return testkit.SuiteRun{}, err
	}
	s.f.RunTest(ctx, "Expired token is refused and refresh recovers", s.tokenLifecycle)
	s.f.RunTest(ctx, "Only active users with send permission can send", s.authorization)
	s.f.RunTest(ctx, "Opted-out contacts are excluded before dispatch", s.optOut)
	s.f.RunTest(ctx, "Tampered webhook signatures are rejected", s.signature)
	return s.f.Run(), nil
}

func helloPayload() domain.SendPayload {
	return campaign.BuildPayload(fixtures.MustTemplate("hello_world"), fixtures.ValidContacts()[0])
}

func (s *Security) tokenLifecycle(ctx context.Context) (bool, error) {
	s.api.Reset()
	u := auth.User{ID: "agent-1", Name: "Campaign Agent", Role: auth.RoleAgent, Active: true}

	expired, err := s.issuer.IssueWithExpiry(u, time.Now().Add(-time.Minute))
	if err != nil {
		return false, err
	}
	if _, err := s.gateway.Send(ctx, expired.Value, u, helloPayload()); !errors.Is(err, auth.ErrTokenExpired) {
		return false, fmt.Errorf("send with expired token: got %v, want %v", err, auth.ErrTokenExpired)
	}

	fresh, err := s.issuer.Refresh(u, expired.Value)
	if err != nil {
		return false, fmt.Errorf("refresh: %w", err)
	}
	if fresh.Value == expired.Value || fresh.Expired(time.Now()) {
		return false, fmt.Errorf("refresh returned a stale token")
	}
	if _, err := s.issuer.Validate(fresh.Value); err != nil {
		return false, err
	}

	resp, err := s.gateway.Send(ctx, fresh.Value, u, helloPayload())
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (s *Security) authorization(ctx context.Context) (bool, error) {
	s.api.Reset()
	cases := []struct {
		user auth.User
		want error
	}{
		{auth.User{ID: "viewer-1", Role: auth.RoleViewer, Active: true}, auth.ErrPermissionDenied},
		{auth.User{ID: "admin-2", Role: auth.RoleAdmin, Active: false}, auth.ErrUserInactive},
		{auth.User{ID: "agent-3", Role: auth.RoleAgent, Active: true}, nil},
	}
	for _, c := range cases {
		tok, err := s.issuer.Issue(c.user)
		if err != nil {
			return false, err
		}
		_, err = s.gateway.Send(ctx, tok.Value, c.user, helloPayload())
		if c.want == nil && err != nil {
			return false, fmt.Errorf("%s: %w", c.user.ID, err)
		}
		if c.want != nil && !errors.Is(err, c.want) {
			return false, fmt.Errorf("%s: got %v, want %v", c.user.ID, err, c.want)
		}
	}
	// refused sends never reach the transport
	return len(s.api.Messages()) == 1, nil
}

func (s *Security) optOut(ctx context.Context) (bool, error) {
	s.api.Reset()
	d := campaign.NewDispatcher(s.api, s.opts.Suites)
	valid := fixtures.ValidContacts()
	optedOut, _ := fixtures.FindContact(fixtures.OptedOutPhone)

	reg := campaign.NewOptOutRegistry(fixtures.OptedOutPhone, valid[1].Phone)
	batch := append(valid, optedOut)
	allowed, excluded := campaign.FilterOptedOut(batch, reg)
	if len(excluded) != 2 {
		return false, fmt.Errorf("excluded %d contacts, want 2", len(excluded))
	}

	tpl := fixtures.MustTemplate("hello_world")
	var want []string
	for _, c := range allowed {
		if _, err := sendOnce(ctx, d, tpl, c); err != nil {
			return false, err
		}
		want = append(want, util.NormalizePhone(c.Phone))
	}

	var got []string
	for _, m := range s.api.Messages() {
		if reg.Contains(m.Phone) {
			return false, fmt.Errorf("message sent to opted-out %s", m.Phone)
		}
		got = append(got, m.Phone)
	}
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		return false, fmt.Errorf("sent to %v, want %v", got, want)
	}
	return true, nil
}

func (s *Security) signature(context.Context) (bool, error) {
	secret := s.opts.Suites.TokenSecret
	body, err := json.Marshal(webhook.StatusEvent("wamid.sig", fixtures.ValidContacts()[0].Phone, domain.StatusDelivered))
	if err != nil {
		return false, err
	}
	sig := webhook.Sign(secret, body)
	if !webhook.VerifySignature(secret, body, sig) {
		return false, fmt.Errorf("valid signature rejected")
	}

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] ^= 1
	if webhook.VerifySignature(secret, tampered, sig) {
		return false, fmt.Errorf("tampered body accepted")
	}
	if webhook.VerifySignature(secret+"x", body, sig) {
		return false, fmt.Errorf("foreign secret accepted")
	}
	return true, nil
}
