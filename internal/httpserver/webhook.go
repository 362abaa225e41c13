package httpserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"wacampaign/internal/webhook"
)

const maxWebhookBody = 1 << 20

// Webhook receives Business Platform callbacks. An empty AppSecret skips
// signature verification.
type Webhook struct {
	Proc        *webhook.Processor
	AppSecret   string
	VerifyToken string
}

func (wh *Webhook) Register(m *mux.Router) {
	m.HandleFunc("/api/whatsapp/webhook", wh.handleVerify).Methods(http.MethodGet)
	m.HandleFunc("/api/whatsapp/webhook", wh.handleEvent).Methods(http.MethodPost)
}

// handleVerify answers the subscription handshake by echoing hub.challenge.
func (wh *Webhook) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != wh.VerifyToken {
		http.Error(w, ErrVerifyFailed, http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

func (wh *Webhook) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, ErrReadBody, http.StatusBadRequest)
		return
	}
	if wh.AppSecret != "" && !webhook.VerifySignature(wh.AppSecret, body, r.Header.Get(webhook.SignatureHeader)) {
		slog.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, ErrInvalidSignature, http.StatusUnauthorized)
		return
	}

	var ev webhook.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if ev.Object != webhook.ObjectWhatsApp {
		http.Error(w, ErrUnknownObject, http.StatusBadRequest)
		return
	}

	wh.Proc.Process(ev)
	w.WriteHeader(http.StatusOK)
}
