// Package mockapi simulates the WhatsApp Business message endpoint: template
// and recipient gating, a bursty rate-limit counter and asynchronous delivery
// and read reports.
package mockapi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"wacampaign/internal/config"
	"wacampaign/internal/domain"
	"wacampaign/internal/fixtures"
	"wacampaign/internal/observability"
	"wacampaign/internal/util"
)

// StatusListener observes every simulated delivery report after it is recorded.
type StatusListener func(domain.DeliveryReport)

type Option func(*API)

func WithRand(r Rand) Option { return func(a *API) { a.rnd = r } }

func WithClock(now func() time.Time) Option { return func(a *API) { a.now = now } }

func WithStatusListener(l StatusListener) Option {
	return func(a *API) { a.listeners = append(a.listeners, l) }
}

type API struct {
	cfg       config.Simulation
	rnd       Rand
	now       func() time.Time
	listeners []StatusListener

	mu        sync.Mutex
	callCount int
	epoch     uint64
	timerSeq  uint64
	timers    map[uint64]*time.Timer
	messages  []domain.SentMessage
	reports   []domain.DeliveryReport
}

func New(cfg config.Simulation, opts ...Option) *API {
	a := &API{
		cfg:    cfg,
		now:    util.NowUTC,
		timers: make(map[uint64]*time.Timer),
	}
	for _, o := range opts {
		o(a)
	}
	if a.rnd == nil {
		a.rnd = NewRand(cfg.Seed)
	}
	return a
}

// SendMessage validates the payload and, on success, schedules the delivery
// simulation without waiting for it. Failures carry a *domain.SendError.
func (a *API) SendMessage(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendResponse{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.callCount++
	if a.callCount > a.cfg.RateLimitThreshold {
		a.callCount = 0
		return a.reject(p, domain.ErrRateLimited())
	}

	tpl, known := fixtures.FindTemplate(p.Template.Name)
	if known && tpl.Status != domain.TemplateApproved {
		return a.reject(p, domain.ErrTemplateNotApproved(p.Template.Name))
	}

	phone := util.NormalizePhone(p.To)
	if c, ok := fixtures.FindContact(phone); ok {
		switch {
		case c.IsInvalid:
			return a.reject(p, domain.ErrInvalidPhone(phone))
		case c.IsBlocked:
			return a.reject(p, domain.ErrUserBlocked(phone))
		case c.IsOptedOut:
			return a.reject(p, domain.ErrOptedOut(phone))
		}
	}
	if a.cfg.StrictPhoneValidation && !util.ValidatePhoneNumber(phone) {
		return a.reject(p, domain.ErrInvalidPhone(phone))
	}

	id := util.NewMessageID()
	a.messages = append(a.messages, domain.SentMessage{
		ID:           id,
		Phone:        phone,
		TemplateID:   tpl.ID,
		TemplateName: p.Template.Name,
		Timestamp:    a.now(),
		Status:       domain.StatusSent,
	})
	observability.MockSends.WithLabelValues("ok").Inc()
	slog.Debug("mock message accepted", "message_id", id, "phone", phone, "template", p.Template.Name)

	a.scheduleLocked(a.between(a.cfg.DeliveryDelayMin, a.cfg.DeliveryDelayMax), func(epoch uint64) {
		a.deliver(epoch, id, phone)
	})

	return domain.SendResponse{
		Success: true,
		Data: domain.SendData{
			MessagingProduct: "whatsapp",
			Contacts:         []domain.ContactRef{{Input: p.To, WaID: phone}},
			Messages:         []domain.MessageRef{{ID: id}},
		},
	}, nil
}

func (a *API) reject(p domain.SendPayload, se *domain.SendError) (domain.SendResponse, error) {
	observability.MockSends.WithLabelValues(string(se.Kind)).Inc()
	slog.Debug("mock message rejected", "phone", p.To, "template", p.Template.Name, "kind", se.Kind)
	return domain.SendResponse{Success: false, Data: domain.SendData{Error: se.APIError()}}, se
}

// scheduleLocked arms fn for the current epoch. Caller holds a.mu.
func (a *API) scheduleLocked(d time.Duration, fn func(epoch uint64)) {
	a.timerSeq++
	key, epoch := a.timerSeq, a.epoch
	a.timers[key] = time.AfterFunc(d, func() {
		a.mu.Lock()
		delete(a.timers, key)
		a.mu.Unlock()
		fn(epoch)
	})
}

func (a *API) deliver(epoch uint64, id, phone string) {
	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		return
	}
	if a.rnd.Float64() >= a.cfg.DeliveryProbability {
		// Some messages are never resolved; no failure is emitted.
		a.mu.Unlock()
		slog.Debug("mock message left unresolved", "message_id", id)
		return
	}
	rep := a.recordLocked(id, phone, domain.StatusDelivered)
	if a.rnd.Float64() < a.cfg.ReadProbability {
		a.scheduleLocked(a.between(a.cfg.ReadDelayMin, a.cfg.ReadDelayMax), func(epoch uint64) {
			a.read(epoch, id, phone)
		})
	}
	a.mu.Unlock()
	a.notify(rep)
}

func (a *API) read(epoch uint64, id, phone string) {
	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		return
	}
	rep := a.recordLocked(id, phone, domain.StatusRead)
	a.mu.Unlock()
	a.notify(rep)
}

func (a *API) recordLocked(id, phone string, st domain.DeliveryStatus) domain.DeliveryReport {
	rep := domain.DeliveryReport{MessageID: id, Phone: phone, Status: st, Timestamp: a.now()}
	a.reports = append(a.reports, rep)
	observability.DeliveryReports.WithLabelValues(string(st)).Inc()
	return rep
}

func (a *API) notify(rep domain.DeliveryReport) {
	for _, l := range a.listeners {
		l(rep)
	}
}

func (a *API) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(a.rnd.Float64()*float64(max-min))
}

// Reset clears the logs and the rate-limit counter and cancels pending reports.
func (a *API) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, t := range a.timers {
		t.Stop()
		delete(a.timers, k)
	}
	a.epoch++
	a.callCount = 0
	a.messages = nil
	a.reports = nil
}

func (a *API) Messages() []domain.SentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.SentMessage(nil), a.messages...)
}

func (a *API) DeliveryReports() []domain.DeliveryReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.DeliveryReport(nil), a.reports...)
}

func (a *API) ReportsFor(messageID string) []domain.DeliveryReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.DeliveryReport
	for _, r := range a.reports {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out
}

func (a *API) HasStatus(messageID string, st domain.DeliveryStatus) bool {
	for _, r := range a.ReportsFor(messageID) {
		if r.Status == st {
			return true
		}
	}
	return false
}
