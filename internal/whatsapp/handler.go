package whatsapp

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// Dialog is the dispatcher the handler hands normalized input to.
type Dialog interface {
	Handle(ctx context.Context, from, input string) error
}

type Handler struct {
	dlg         Dialog
	verifyToken string
}

func NewHandler(dlg Dialog, verifyToken string) *Handler {
	return &Handler{dlg: dlg, verifyToken: verifyToken}
}

// webhookPayload mirrors the slice of the Graph API envelope this bot
// reads: the first message of the first change of the first entry.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// HandleVerify answers the platform's webhook subscription handshake.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	w.WriteHeader(http.StatusForbidden)
}

// HandleWebhook ingests one inbound message. Text bodies and button
// replies are normalized to the same lowercase-trimmed token; anything
// else is acknowledged and ignored. The platform always gets a 200 so
// it does not redeliver on our own processing errors.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	msg, ok := firstMessage(payload)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	var text string
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			text = msg.Text.Body
		}
	case "interactive":
		if msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
			text = msg.Interactive.ButtonReply.Title
		}
	default:
		log.Printf("[whatsapp] unsupported message type %q from %s", msg.Type, msg.From)
	}

	text = strings.ToLower(strings.TrimSpace(text))
	if text != "" {
		if err := h.dlg.Handle(r.Context(), msg.From, text); err != nil {
			log.Printf("[whatsapp] dialog error for %s: %v", msg.From, err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func firstMessage(p webhookPayload) (inboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return inboundMessage{}, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return inboundMessage{}, false
	}
	return msgs[0], true
}
