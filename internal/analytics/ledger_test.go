package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(lg *Ledger, campaign string, phones []string, st LogStatus) {
	for _, p := range phones {
		lg.Append(DatabaseLog{CampaignID: campaign, MessageID: "m-" + p, Phone: p, Status: st, TemplateID: "tpl_hello_world"})
	}
}

func TestExportReportMatchesRawLog(t *testing.T) {
	lg := NewLedger()
	seed(lg, "c1", []string{"a", "b", "c"}, LogSent)
	seed(lg, "c1", []string{"a", "b"}, LogDelivered)
	seed(lg, "c1", []string{"a"}, LogRead)
	seed(lg, "c1", []string{"d"}, LogFailed)
	lg.RecordClick("c1", "m-a", "a", "https://example.com/offer")
	seed(lg, "other", []string{"z"}, LogSent)

	r := lg.ExportReport("c1")
	assert.Equal(t, ReportSummary{
		Sent: 3, Delivered: 2, Read: 1, Failed: 1, Clicked: 1,
		DeliveryRate: 66.67, ReadRate: 50, CTR: 33.33,
	}, r.Summary)
	assert.Equal(t, 8, r.TotalRecords)
	assert.Len(t, r.DetailedLogs, 8)
	require.Len(t, r.Links, 1)
	assert.Equal(t, 1, r.Links[0].UniqueClicks)
}

func TestCTRUsesUniquePhones(t *testing.T) {
	lg := NewLedger()
	seed(lg, "c", []string{"a", "b", "c", "d"}, LogSent)
	lg.RecordClick("c", "m-a", "a", "u1")
	lg.RecordClick("c", "m-a", "a", "u1")
	lg.RecordClick("c", "m-b", "b", "u2")

	a := lg.Analytics("c")
	assert.Equal(t, 3, a.Clicks)
	assert.Equal(t, 2, a.UniqueClicks)
	assert.Equal(t, 50.0, a.CTR)

	links := lg.Links("c")
	require.Len(t, links, 2)
	assert.Equal(t, "u1", links[0].URL)
	assert.Equal(t, 2, links[0].TotalClicks)
	assert.Equal(t, 1, links[0].UniqueClicks)
	assert.Equal(t, map[string]int{"a": 2}, links[0].ClicksByPhone)
	assert.Len(t, links[0].ClickTimes, 2)
}

func TestRatesGuardZeroDenominators(t *testing.T) {
	lg := NewLedger()
	lg.RecordClick("c", "m", "a", "u")
	lg.RecordClick("c", "m", "b", "u")

	a := lg.Analytics("c")
	assert.Zero(t, a.CTR)
	assert.Zero(t, a.DeliveryRate)
	assert.Zero(t, a.ReadRate)
}

func TestCTRClampedToHundred(t *testing.T) {
	lg := NewLedger()
	seed(lg, "c", []string{"a"}, LogSent)
	lg.RecordClick("c", "m", "a", "u")
	lg.RecordClick("c", "m", "b", "u")
	lg.RecordClick("c", "m", "c", "u")

	ctr := lg.Analytics("c").CTR
	assert.GreaterOrEqual(t, ctr, 0.0)
	assert.LessOrEqual(t, ctr, 100.0)
}

func TestAppendFillsDefaultsAndCopiesMetadata(t *testing.T) {
	lg := NewLedger()
	md := map[string]string{MetaURL: "u"}
	stored := lg.Append(DatabaseLog{CampaignID: "c", Status: LogClicked, Metadata: md})
	md[MetaURL] = "mutated"

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.Timestamp.IsZero())
	assert.Equal(t, "u", lg.ForCampaign("c")[0].Metadata[MetaURL])
	assert.Equal(t, 1, lg.Len())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 66.67, Percent(2, 3))
	assert.Equal(t, 0.0, Percent(5, 0))
	assert.Equal(t, 100.0, Percent(3, 3))
}
