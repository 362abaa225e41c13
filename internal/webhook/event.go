package webhook

import (
	"strconv"
	"time"

	"wacampaign/internal/domain"
	"wacampaign/internal/util"
)

const (
	ObjectWhatsApp = "whatsapp_business_account"
	FieldMessages  = "messages"

	FailureCode  = 131026
	FailureTitle = "Message Undeliverable"
)

// Event is the webhook delivery envelope posted by the Business Platform.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Statuses         []Status          `json:"statuses,omitempty"`
	Messages         []IncomingMessage `json:"messages,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Status struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Timestamp   string        `json:"timestamp"`
	RecipientID string        `json:"recipient_id"`
	Errors      []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

type IncomingMessage struct {
	From      string          `json:"from"`
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Text      *TextBody       `json:"text,omitempty"`
	Context   *MessageContext `json:"context,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// MessageContext links a reply to the outbound message it answers.
type MessageContext struct {
	From string `json:"from,omitempty"`
	ID   string `json:"id"`
}

func envelope(v Value) Event {
	v.MessagingProduct = "whatsapp"
	v.Metadata = Metadata{DisplayPhoneNumber: "15550000000", PhoneNumberID: "mock-phone-number-id"}
	return Event{
		Object: ObjectWhatsApp,
		Entry: []Entry{{
			ID:      "mock-waba-id",
			Changes: []Change{{Field: FieldMessages, Value: v}},
		}},
	}
}

func unixNow() string { return strconv.FormatInt(time.Now().Unix(), 10) }

// StatusEvent builds a status update for one message.
func StatusEvent(messageID, phone string, st domain.DeliveryStatus) Event {
	return envelope(Value{Statuses: []Status{{
		ID: messageID, Status: string(st), Timestamp: unixNow(), RecipientID: phone,
	}}})
}

// FailureEvent builds a failed status carrying the fixed undeliverable code.
func FailureEvent(messageID, phone, message string) Event {
	return envelope(Value{Statuses: []Status{{
		ID: messageID, Status: string(domain.StatusFailed), Timestamp: unixNow(), RecipientID: phone,
		Errors: []StatusError{{Code: FailureCode, Title: FailureTitle, Message: message}},
	}}})
}

// IncomingMessageEvent builds an inbound text message; contextID may be empty.
func IncomingMessageEvent(from, text, contextID string) Event {
	msg := IncomingMessage{
		From: from, ID: util.NewMessageID(), Timestamp: unixNow(), Type: "text",
		Text: &TextBody{Body: text},
	}
	if contextID != "" {
		msg.Context = &MessageContext{ID: contextID}
	}
	return envelope(Value{Messages: []IncomingMessage{msg}})
}

func parseUnix(s string, fallback time.Time) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Unix(n, 0).UTC()
}
