package suites

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"wacampaign/internal/analytics"
	"wacampaign/internal/campaign"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/mockapi"
	"wacampaign/internal/testkit"
	"wacampaign/internal/util"
)

// campaignSink logs the transport's delivery reports for the active campaign
// and counts them independently of the ledger.
type campaignSink struct {
	mu       sync.Mutex
	ledger   *analytics.Ledger
	campaign string
	tpl      string
	tracked  map[analytics.LogStatus]int
}

func (k *campaignSink) start(campaignID, templateID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.campaign, k.tpl = campaignID, templateID
	k.tracked = map[analytics.LogStatus]int{}
}

func (k *campaignSink) log(l analytics.DatabaseLog) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.campaign == "" {
		return
	}
	l.CampaignID, l.TemplateID = k.campaign, k.tpl
	k.ledger.Append(l)
	k.tracked[l.Status]++
}

func (k *campaignSink) observe(r domain.DeliveryReport) {
	k.log(analytics.DatabaseLog{MessageID: r.MessageID, Phone: r.Phone, Status: analytics.LogStatus(r.Status), Timestamp: r.Timestamp})
}

// snapshot reads the ledger and the tracked counts under one lock.
func (k *campaignSink) snapshot() (analytics.CampaignAnalytics, map[analytics.LogStatus]int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	tracked := make(map[analytics.LogStatus]int, len(k.tracked))
	for s, n := range k.tracked {
		tracked[s] = n
	}
	return k.ledger.Analytics(k.campaign), tracked
}

type Analytics struct {
	opts Options
	sink *campaignSink
	api  *mockapi.API
	f    *testkit.Framework
}

func NewAnalytics(o Options) *Analytics {
	sink := &campaignSink{ledger: analytics.NewLedger()}
	return &Analytics{
		opts: o,
		sink: sink,
		api:  o.newAPI(mockapi.WithStatusListener(sink.observe)),
		f:    o.newFramework(NameAnalytics),
	}
}

func (s *Analytics) Name() string { return NameAnalytics }

func (s *Analytics) Run(ctx context.Context) (testkit.SuiteRun, error) {
	if err := runStarted(ctx, s.f); err != nil {
		return testkit.SuiteRun{}, err
	}
	s.f.RunTest(ctx, "Dashboard counts match tracked events", s.dashboard)
	s.f.RunTest(ctx, "CTR counts unique clickers", s.clickThrough)
	s.f.RunTest(ctx, "Exported report matches raw log", s.exportFidelity)
	return s.f.Run(), nil
}

// sendCampaign sends hello_world to contacts, logging each outcome. Rate
// limits are retried so only recipient rejections are logged as failed.
func (s *Analytics) sendCampaign(ctx context.Context, contacts []domain.TestContact) (string, map[string]string, error) {
	s.api.Reset()
	d := campaign.NewDispatcher(s.api, s.opts.Suites)
	tpl := fixtures.MustTemplate("hello_world")
	id := "cmp_" + uuid.NewString()
	s.sink.start(id, tpl.ID)

	sent := map[string]string{}
	for _, c := range contacts {
		phone := util.NormalizePhone(c.Phone)
		out := d.SendWithRetry(ctx, campaign.BuildPayload(tpl, c))
		switch {
		case out.Err == nil:
			sent[phone] = out.Response.MessageID()
			s.sink.log(analytics.DatabaseLog{MessageID: out.Response.MessageID(), Phone: phone, Status: analytics.LogSent})
		case domain.KindOf(out.Err) == domain.KindUnknown:
			return "", nil, out.Err
		default:
			s.sink.log(analytics.DatabaseLog{Phone: phone, Status: analytics.LogFailed, Error: out.Err.Error()})
		}
	}
	return id, sent, nil
}

func (s *Analytics) dashboard(ctx context.Context) (bool, error) {
	blocked, _ := fixtures.FindContact(fixtures.BlockedPhone)
	contacts := append([]domain.TestContact{blocked}, fixtures.ValidContacts()...)
	if _, _, err := s.sendCampaign(ctx, contacts); err != nil {
		return false, err
	}
	if err := testkit.Wait(ctx, s.opts.Suites.DeliveryWait); err != nil {
		return false, err
	}

	a, tracked := s.sink.snapshot()
	if tracked[analytics.LogSent] != 3 || tracked[analytics.LogFailed] != 1 {
		return false, fmt.Errorf("tracked %d sent and %d failed, want 3 and 1", tracked[analytics.LogSent], tracked[analytics.LogFailed])
	}
	got := [4]int{a.Sent, a.Delivered, a.Read, a.Failed}
	want := [4]int{tracked[analytics.LogSent], tracked[analytics.LogDelivered], tracked[analytics.LogRead], tracked[analytics.LogFailed]}
	if got != want {
		return false, fmt.Errorf("dashboard sent/delivered/read/failed %v, tracked %v", got, want)
	}
	return true, nil
}

func (s *Analytics) clickThrough(ctx context.Context) (bool, error) {
	id, sent, err := s.sendCampaign(ctx, fixtures.ValidContacts())
	if err != nil {
		return false, err
	}
	const url = "https://example.com/offer"
	clickers := fixtures.ValidContacts()[:2]
	for i, c := range clickers {
		phone := util.NormalizePhone(c.Phone)
		s.sink.ledger.RecordClick(id, sent[phone], phone, url)
		if i == 0 {
			s.sink.ledger.RecordClick(id, sent[phone], phone, url)
		}
	}

	a := s.sink.ledger.Analytics(id)
	expected := float64(len(clickers)) / float64(len(sent)) * 100
	if math.Abs(a.CTR-expected) > 5 {
		return false, fmt.Errorf("CTR %.2f, expected %.2f", a.CTR, expected)
	}
	return a.Clicks == len(clickers)+1 && a.UniqueClicks == len(clickers), nil
}

func (s *Analytics) exportFidelity(context.Context) (bool, error) {
	lg := analytics.NewLedger()
	id := "cmp_" + uuid.NewString()
	add := func(phone string, st analytics.LogStatus) {
		lg.Append(analytics.DatabaseLog{CampaignID: id, MessageID: "wamid." + phone, Phone: phone, Status: st, TemplateID: "tpl_hello_world"})
	}
	valid := fixtures.ValidContacts()
	for _, c := range valid {
		add(c.Phone, analytics.LogSent)
	}
	add(valid[0].Phone, analytics.LogDelivered)
	add(valid[1].Phone, analytics.LogDelivered)
	add(valid[0].Phone, analytics.LogRead)
	add(fixtures.BlockedPhone, analytics.LogFailed)
	lg.RecordClick(id, "wamid."+valid[0].Phone, valid[0].Phone, "https://example.com/offer")

	r := lg.ExportReport(id)
	raw := lg.ForCampaign(id)

	counts := map[analytics.LogStatus]int{}
	for _, l := range raw {
		counts[l.Status]++
	}
	sum := r.Summary
	if sum.Sent != counts[analytics.LogSent] || sum.Delivered != counts[analytics.LogDelivered] ||
		sum.Read != counts[analytics.LogRead] || sum.Failed != counts[analytics.LogFailed] ||
		sum.Clicked != counts[analytics.LogClicked] {
		return false, fmt.Errorf("summary %+v disagrees with raw counts %v", sum, counts)
	}
	if r.TotalRecords != len(raw) || len(r.DetailedLogs) != len(raw) {
		return false, fmt.Errorf("report holds %d/%d records, raw log has %d", r.TotalRecords, len(r.DetailedLogs), len(raw))
	}

	ratio := func(n, d int) float64 { return float64(n) / float64(d) * 100 }
	rates := []struct {
		name      string
		got, want float64
	}{
		{"delivery rate", sum.DeliveryRate, ratio(counts[analytics.LogDelivered], counts[analytics.LogSent])},
		{"read rate", sum.ReadRate, ratio(counts[analytics.LogRead], counts[analytics.LogDelivered])},
		{"CTR", sum.CTR, ratio(counts[analytics.LogClicked], counts[analytics.LogSent])},
	}
	for _, rt := range rates {
		if math.Abs(rt.got-rt.want) > 1 {
			return false, fmt.Errorf("%s %.2f, expected %.2f", rt.name, rt.got, rt.want)
		}
	}
	return true, nil
}
