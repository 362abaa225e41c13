package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"wacampaign/internal/domain"
	"wacampaign/internal/util"
	"wacampaign/internal/webhook"
)

type Transport interface {
	SendMessage(ctx context.Context, p domain.SendPayload) (domain.SendResponse, error)
	Messages() []domain.SentMessage
	DeliveryReports() []domain.DeliveryReport
	ReportsFor(messageID string) []domain.DeliveryReport
	Reset()
}

// API exposes the simulated transport and the webhook ledgers over HTTP.
type API struct {
	Transport Transport
	Proc      *webhook.Processor
}

func (a *API) Register(m *mux.Router) {
	m.HandleFunc("/api/whatsapp/send", a.handleSend).Methods(http.MethodPost)
	m.HandleFunc("/api/whatsapp/reports", a.handleReports).Methods(http.MethodGet)
	m.HandleFunc("/api/whatsapp/threads/{phone}", a.handleThread).Methods(http.MethodGet)
	m.HandleFunc("/api/whatsapp/reset", a.handleReset).Methods(http.MethodPost)
}

func (a *API) handleSend(w http.ResponseWriter, r *http.Request) {
	var p domain.SendPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if p.To == "" || p.Template.Name == "" {
		http.Error(w, ErrMissingField, http.StatusBadRequest)
		return
	}

	resp, err := a.Transport.SendMessage(r.Context(), p)
	if err != nil {
		var se *domain.SendError
		if !errors.As(err, &se) {
			slog.Error("send failed", "err", err, "to", p.To, "template", p.Template.Name)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		status := http.StatusBadRequest
		if se.Retryable() {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type reportsResponse struct {
	Messages        []domain.SentMessage    `json:"messages,omitempty"`
	DeliveryReports []domain.DeliveryReport `json:"deliveryReports"`
	WebhookReports  []domain.DeliveryReport `json:"webhookReports"`
	FailedMessages  []domain.FailedMessage  `json:"failedMessages"`
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("message_id"); id != "" {
		writeJSON(w, http.StatusOK, reportsResponse{
			DeliveryReports: a.Transport.ReportsFor(id),
			WebhookReports:  a.Proc.ReportsFor(id),
		})
		return
	}
	writeJSON(w, http.StatusOK, reportsResponse{
		Messages:        a.Transport.Messages(),
		DeliveryReports: a.Transport.DeliveryReports(),
		WebhookReports:  a.Proc.DeliveryReports(),
		FailedMessages:  a.Proc.FailedMessages(),
	})
}

func (a *API) handleThread(w http.ResponseWriter, r *http.Request) {
	phone := util.NormalizePhone(mux.Vars(r)["phone"])
	writeJSON(w, http.StatusOK, a.Proc.ThreadFor(phone))
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	a.Transport.Reset()
	a.Proc.Reset()
	slog.Info("simulation reset")
	w.WriteHeader(http.StatusNoContent)
}
