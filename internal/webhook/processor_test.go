package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacampaign/internal/domain"
)

func TestStatusEventsFoldIntoReports(t *testing.T) {
	p := NewProcessor()
	for _, st := range []domain.DeliveryStatus{domain.StatusSent, domain.StatusDelivered, domain.StatusRead} {
		p.Process(StatusEvent("wamid.1", "919876543210", st))
	}

	reps := p.ReportsFor("wamid.1")
	require.Len(t, reps, 3)
	assert.Equal(t, domain.StatusSent, reps[0].Status)
	assert.Equal(t, domain.StatusRead, reps[2].Status)
	assert.Empty(t, p.FailedMessages())
}

func TestFailureEventGoesToFailedLedger(t *testing.T) {
	p := NewProcessor()
	p.Process(FailureEvent("wamid.2", "919999999999", "user blocked the business"))

	failed := p.FailedFor("919999999999")
	require.Len(t, failed, 1)
	assert.Equal(t, "user blocked the business", failed[0].Error)
	assert.Equal(t, FailureCode, failed[0].Code)
	assert.Empty(t, p.DeliveryReports())
}

func TestFailureFallsBackToTitle(t *testing.T) {
	p := NewProcessor()
	ev := FailureEvent("wamid.3", "1", "")
	p.Process(ev)
	assert.Equal(t, FailureTitle, p.FailedMessages()[0].Error)
}

func TestUnknownStatusIgnored(t *testing.T) {
	p := NewProcessor()
	p.Process(StatusEvent("wamid.4", "1", "deleted"))
	assert.Empty(t, p.DeliveryReports())
	assert.Empty(t, p.FailedMessages())
}

func TestIncomingRepliesThreadWithContext(t *testing.T) {
	p := NewProcessor()
	p.RecordOutbound("wamid.out", "919876543210", "hello_world")
	p.Process(IncomingMessageEvent("919876543210", "Thanks!", "wamid.out"))
	p.Process(IncomingMessageEvent("919876543210", "Another question", ""))

	thread := p.ThreadFor("919876543210")
	require.Len(t, thread, 3)

	var outbound, inbound int
	var linked []string
	for _, e := range thread {
		switch e.Direction {
		case domain.DirectionOutbound:
			outbound++
		case domain.DirectionInbound:
			inbound++
			if e.ContextID != "" {
				linked = append(linked, e.ContextID)
			}
		}
	}
	assert.Equal(t, 1, outbound)
	assert.Equal(t, 2, inbound)
	assert.Equal(t, []string{"wamid.out"}, linked)
}

func TestEventEnvelopeRoundTripsThroughJSON(t *testing.T) {
	b, err := json.Marshal(IncomingMessageEvent("1555", "hi", "ctx"))
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(b, &ev))
	p := NewProcessor()
	p.Process(ev)
	require.Len(t, p.Threads(), 1)
	assert.Equal(t, "ctx", p.Threads()[0].ContextID)
	assert.Equal(t, "hi", p.Threads()[0].Content)
}

func TestStatusesProcessedBeforeMessagesInOneCall(t *testing.T) {
	ev := IncomingMessageEvent("1555", "hi", "")
	ev.Entry[0].Changes[0].Value.Statuses = []Status{{ID: "wamid.9", Status: "delivered", RecipientID: "1555"}}

	p := NewProcessor()
	p.Process(ev)
	assert.Len(t, p.DeliveryReports(), 1)
	assert.Len(t, p.Threads(), 1)
}

func TestEmitterAndReset(t *testing.T) {
	p := NewProcessor()
	emit := Emitter(p)
	emit(domain.DeliveryReport{MessageID: "wamid.5", Phone: "1", Status: domain.StatusDelivered})
	assert.Len(t, p.ReportsFor("wamid.5"), 1)

	p.Reset()
	assert.Empty(t, p.DeliveryReports())
	assert.Empty(t, p.Threads())
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	sig := Sign("secret", body)
	assert.True(t, VerifySignature("secret", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("secret", body, "deadbeef"))
}
