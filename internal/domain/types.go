package domain

import "time"

type TemplateStatus string

const (
	TemplateApproved TemplateStatus = "APPROVED"
	TemplatePending  TemplateStatus = "PENDING"
	TemplateRejected TemplateStatus = "REJECTED"
)

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// TestContact flags are independent; the mock transport treats them as ground truth.
type TestContact struct {
	Phone      string `json:"phone"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Company    string `json:"company,omitempty"`
	IsInvalid  bool   `json:"isInvalid,omitempty"`
	IsBlocked  bool   `json:"isBlocked,omitempty"`
	IsOptedOut bool   `json:"isOptedOut,omitempty"`
}

type TestTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Status       TemplateStatus `json:"status"`
	Language     string         `json:"language"`
	Category     string         `json:"category"`
	Content      string         `json:"content"`
	HasVariables bool           `json:"hasVariables"`
	Variables    []string       `json:"variables,omitempty"`
}

// SendPayload mirrors the Cloud API template message request body.
type SendPayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         TemplatePayload `json:"template"`
}

type TemplatePayload struct {
	Name       string             `json:"name"`
	Language   LanguagePayload    `json:"language"`
	Components []ComponentPayload `json:"components,omitempty"`
}

type LanguagePayload struct {
	Code string `json:"code"`
}

type ComponentPayload struct {
	Type       string             `json:"type"`
	Parameters []ParameterPayload `json:"parameters"`
}

type ParameterPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BodyTexts returns the text parameters of the body component in order.
func (p SendPayload) BodyTexts() []string {
	for _, c := range p.Template.Components {
		if c.Type != "body" {
			continue
		}
		out := make([]string, 0, len(c.Parameters))
		for _, prm := range c.Parameters {
			out = append(out, prm.Text)
		}
		return out
	}
	return nil
}

type SendResponse struct {
	Success bool     `json:"success"`
	Data    SendData `json:"data"`
}

type SendData struct {
	MessagingProduct string       `json:"messaging_product,omitempty"`
	Contacts         []ContactRef `json:"contacts,omitempty"`
	Messages         []MessageRef `json:"messages,omitempty"`
	Error            *APIError    `json:"error,omitempty"`
}

type ContactRef struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type MessageRef struct {
	ID string `json:"id"`
}

type APIError struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Kind    ErrorKind `json:"kind"`
}

// MessageID returns the first message id of a successful response.
func (r SendResponse) MessageID() string {
	if len(r.Data.Messages) == 0 {
		return ""
	}
	return r.Data.Messages[0].ID
}

type SentMessage struct {
	ID           string         `json:"id"`
	Phone        string         `json:"phone"`
	TemplateID   string         `json:"templateId,omitempty"`
	TemplateName string         `json:"templateName"`
	Timestamp    time.Time      `json:"timestamp"`
	Status       DeliveryStatus `json:"status"`
}

type DeliveryReport struct {
	MessageID string         `json:"messageId"`
	Phone     string         `json:"phone"`
	Status    DeliveryStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

type ThreadEntry struct {
	MessageID string         `json:"messageId"`
	Phone     string         `json:"phone"`
	Direction Direction      `json:"direction"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Status    DeliveryStatus `json:"status,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
}

type FailedMessage struct {
	MessageID string    `json:"messageId"`
	Phone     string    `json:"phone"`
	Error     string    `json:"error"`
	Code      int       `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
