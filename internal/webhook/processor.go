package webhook

import (
	"log/slog"
	"sync"
	"time"

	"wacampaign/internal/domain"
	"wacampaign/internal/observability"
	"wacampaign/internal/util"
)

// Processor folds webhook envelopes into delivery, conversation and failure
// ledgers. Each Process call is applied atomically.
type Processor struct {
	now func() time.Time

	mu      sync.Mutex
	reports []domain.DeliveryReport
	threads []domain.ThreadEntry
	failed  []domain.FailedMessage
}

func NewProcessor() *Processor {
	return &Processor{now: util.NowUTC}
}

func (p *Processor) Process(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range ev.Entry {
		for _, ch := range e.Changes {
			for _, st := range ch.Value.Statuses {
				p.applyStatusLocked(st)
			}
		}
	}
	for _, e := range ev.Entry {
		for _, ch := range e.Changes {
			for _, m := range ch.Value.Messages {
				p.applyMessageLocked(m)
			}
		}
	}
}

func (p *Processor) applyStatusLocked(st Status) {
	ts := parseUnix(st.Timestamp, p.now())
	if st.Status == string(domain.StatusFailed) {
		fm := domain.FailedMessage{MessageID: st.ID, Phone: st.RecipientID, Timestamp: ts}
		if len(st.Errors) > 0 {
			fm.Code = st.Errors[0].Code
			fm.Error = st.Errors[0].Message
			if fm.Error == "" {
				fm.Error = st.Errors[0].Title
			}
		}
		p.failed = append(p.failed, fm)
		observability.WebhookEvents.WithLabelValues("failed").Inc()
		slog.Info("webhook message failed", "message_id", st.ID, "phone", st.RecipientID, "err", fm.Error)
		return
	}

	switch domain.DeliveryStatus(st.Status) {
	case domain.StatusSent, domain.StatusDelivered, domain.StatusRead:
	default:
		observability.WebhookEvents.WithLabelValues("ignored").Inc()
		slog.Warn("webhook unknown status ignored", "message_id", st.ID, "status", st.Status)
		return
	}
	p.reports = append(p.reports, domain.DeliveryReport{
		MessageID: st.ID,
		Phone:     st.RecipientID,
		Status:    domain.DeliveryStatus(st.Status),
		Timestamp: ts,
	})
	observability.WebhookEvents.WithLabelValues("status").Inc()
}

func (p *Processor) applyMessageLocked(m IncomingMessage) {
	entry := domain.ThreadEntry{
		MessageID: m.ID,
		Phone:     m.From,
		Direction: domain.DirectionInbound,
		Timestamp: parseUnix(m.Timestamp, p.now()),
	}
	if m.Text != nil {
		entry.Content = m.Text.Body
	}
	if m.Context != nil {
		entry.ContextID = m.Context.ID
	}
	p.threads = append(p.threads, entry)
	observability.WebhookEvents.WithLabelValues("message").Inc()
}

// RecordOutbound adds the send-time thread entry for a message.
func (p *Processor) RecordOutbound(messageID, phone, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, domain.ThreadEntry{
		MessageID: messageID,
		Phone:     phone,
		Direction: domain.DirectionOutbound,
		Content:   content,
		Timestamp: p.now(),
		Status:    domain.StatusSent,
	})
}

// Emitter adapts the processor into a listener for simulated delivery reports.
func Emitter(p *Processor) func(domain.DeliveryReport) {
	return func(r domain.DeliveryReport) {
		p.Process(StatusEvent(r.MessageID, r.Phone, r.Status))
	}
}

func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports, p.threads, p.failed = nil, nil, nil
}

func (p *Processor) DeliveryReports() []domain.DeliveryReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.DeliveryReport(nil), p.reports...)
}

func (p *Processor) ReportsFor(messageID string) []domain.DeliveryReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.DeliveryReport
	for _, r := range p.reports {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out
}

func (p *Processor) Threads() []domain.ThreadEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ThreadEntry(nil), p.threads...)
}

func (p *Processor) ThreadFor(phone string) []domain.ThreadEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.ThreadEntry
	for _, t := range p.threads {
		if t.Phone == phone {
			out = append(out, t)
		}
	}
	return out
}

func (p *Processor) FailedMessages() []domain.FailedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.FailedMessage(nil), p.failed...)
}

func (p *Processor) FailedFor(phone string) []domain.FailedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.FailedMessage
	for _, f := range p.failed {
		if f.Phone == phone {
			out = append(out, f)
		}
	}
	return out
}
