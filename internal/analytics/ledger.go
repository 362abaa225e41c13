// Package analytics derives campaign metrics from an append-only log of
// message events. Nothing is stored besides the log itself.
package analytics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wacampaign/internal/util"
)

type LogStatus string

const (
	LogSent      LogStatus = "sent"
	LogDelivered LogStatus = "delivered"
	LogRead      LogStatus = "read"
	LogFailed    LogStatus = "failed"
	LogClicked   LogStatus = "clicked"
)

// MetaURL is the metadata key a clicked entry uses for the link.
const MetaURL = "url"

type DatabaseLog struct {
	ID         string            `json:"id"`
	CampaignID string            `json:"campaignId"`
	MessageID  string            `json:"messageId"`
	Phone      string            `json:"phone"`
	Status     LogStatus         `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	TemplateID string            `json:"templateId"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type Ledger struct {
	now func() time.Time

	mu   sync.RWMutex
	logs []DatabaseLog
}

func NewLedger() *Ledger {
	return &Ledger{now: util.NowUTC}
}

// Append stores a copy of l, filling ID and Timestamp when unset.
func (lg *Ledger) Append(l DatabaseLog) DatabaseLog {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = lg.now()
	}
	if l.Metadata != nil {
		md := make(map[string]string, len(l.Metadata))
		for k, v := range l.Metadata {
			md[k] = v
		}
		l.Metadata = md
	}
	lg.mu.Lock()
	lg.logs = append(lg.logs, l)
	lg.mu.Unlock()
	return l
}

func (lg *Ledger) RecordClick(campaignID, messageID, phone, url string) DatabaseLog {
	return lg.Append(DatabaseLog{
		CampaignID: campaignID,
		MessageID:  messageID,
		Phone:      phone,
		Status:     LogClicked,
		Metadata:   map[string]string{MetaURL: url},
	})
}

func (lg *Ledger) ForCampaign(campaignID string) []DatabaseLog {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	var out []DatabaseLog
	for _, l := range lg.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	return out
}

func (lg *Ledger) Len() int {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return len(lg.logs)
}

type CampaignAnalytics struct {
	CampaignID   string  `json:"campaignId"`
	Sent         int     `json:"sent"`
	Delivered    int     `json:"delivered"`
	Read         int     `json:"read"`
	Failed       int     `json:"failed"`
	Clicks       int     `json:"clicks"`
	UniqueClicks int     `json:"uniqueClicks"`
	CTR          float64 `json:"ctr"`
	DeliveryRate float64 `json:"deliveryRate"`
	ReadRate     float64 `json:"readRate"`
}

func (lg *Ledger) Analytics(campaignID string) CampaignAnalytics {
	a := Compute(lg.ForCampaign(campaignID))
	a.CampaignID = campaignID
	return a
}

// Compute counts statuses and derives the rates. CTR uses distinct clicking
// phones and is clamped to [0,100]; every rate is 0 on a zero denominator.
func Compute(logs []DatabaseLog) CampaignAnalytics {
	var a CampaignAnalytics
	clickers := map[string]struct{}{}
	for _, l := range logs {
		switch l.Status {
		case LogSent:
			a.Sent++
		case LogDelivered:
			a.Delivered++
		case LogRead:
			a.Read++
		case LogFailed:
			a.Failed++
		case LogClicked:
			a.Clicks++
			clickers[l.Phone] = struct{}{}
		}
	}
	a.UniqueClicks = len(clickers)
	a.CTR = math.Min(Percent(a.UniqueClicks, a.Sent), 100)
	a.DeliveryRate = Percent(a.Delivered, a.Sent)
	a.ReadRate = Percent(a.Read, a.Delivered)
	return a
}

// Percent returns num/den*100 rounded to two decimals, or 0 when den is 0.
func Percent(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*10000) / 100
}

type LinkAnalytics struct {
	URL           string         `json:"url"`
	TotalClicks   int            `json:"totalClicks"`
	UniqueClicks  int            `json:"uniqueClicks"`
	ClicksByPhone map[string]int `json:"clicksByPhone"`
	ClickTimes    []time.Time    `json:"clickTimes"`
}

// Links aggregates clicked entries per URL, sorted by URL.
func (lg *Ledger) Links(campaignID string) []LinkAnalytics {
	byURL := map[string]*LinkAnalytics{}
	for _, l := range lg.ForCampaign(campaignID) {
		if l.Status != LogClicked {
			continue
		}
		url := l.Metadata[MetaURL]
		la, ok := byURL[url]
		if !ok {
			la = &LinkAnalytics{URL: url, ClicksByPhone: map[string]int{}}
			byURL[url] = la
		}
		la.TotalClicks++
		la.ClicksByPhone[l.Phone]++
		la.ClickTimes = append(la.ClickTimes, l.Timestamp)
	}

	out := make([]LinkAnalytics, 0, len(byURL))
	for _, la := range byURL {
		la.UniqueClicks = len(la.ClicksByPhone)
		out = append(out, *la)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
