package analytics

import "time"

type ReportSummary struct {
	Sent         int     `json:"sent"`
	Delivered    int     `json:"delivered"`
	Read         int     `json:"read"`
	Failed       int     `json:"failed"`
	Clicked      int     `json:"clicked"`
	DeliveryRate float64 `json:"deliveryRate"`
	ReadRate     float64 `json:"readRate"`
	CTR          float64 `json:"ctr"`
}

type Report struct {
	CampaignID   string          `json:"campaignId"`
	GeneratedAt  time.Time       `json:"generatedAt"`
	Summary      ReportSummary   `json:"summary"`
	Links        []LinkAnalytics `json:"links,omitempty"`
	TotalRecords int             `json:"totalRecords"`
	DetailedLogs []DatabaseLog   `json:"detailedLogs"`
}

// ExportReport snapshots the campaign's log and everything derived from it.
func (lg *Ledger) ExportReport(campaignID string) Report {
	logs := lg.ForCampaign(campaignID)
	a := Compute(logs)
	return Report{
		CampaignID:  campaignID,
		GeneratedAt: lg.now(),
		Summary: ReportSummary{
			Sent:         a.Sent,
			Delivered:    a.Delivered,
			Read:         a.Read,
			Failed:       a.Failed,
			Clicked:      a.Clicks,
			DeliveryRate: a.DeliveryRate,
			ReadRate:     a.ReadRate,
			CTR:          a.CTR,
		},
		Links:        lg.Links(campaignID),
		TotalRecords: len(logs),
		DetailedLogs: logs,
	}
}
