// Package whatsapp is the transport edge: webhook intake and Graph
// API outbound delivery.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxButtons is the channel limit on interactive reply buttons.
// Longer button lists are truncated, not rejected.
const maxButtons = 3

type Messenger struct {
	baseURL       string
	token         string
	phoneNumberID string
	client        *http.Client
}

func NewMessenger(token, phoneNumberID, apiVersion string) *Messenger {
	return &Messenger{
		baseURL:       "https://graph.facebook.com/" + apiVersion,
		token:         token,
		phoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers text to a user, as a plain message or, when buttons
// are given, as an interactive button message.
func (m *Messenger) Send(ctx context.Context, to, text string, buttons ...string) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}

	var payload map[string]any
	if len(buttons) == 0 {
		payload = map[string]any{
			"messaging_product": "whatsapp",
			"to":                to,
			"type":              "text",
			"text":              map[string]any{"body": text},
		}
	} else {
		btns := make([]map[string]any, 0, len(buttons))
		for i, label := range buttons {
			btns = append(btns, map[string]any{
				"type": "reply",
				"reply": map[string]any{
					"id":    fmt.Sprintf("btn_%d", i),
					"title": label,
				},
			})
		}
		payload = map[string]any{
			"messaging_product": "whatsapp",
			"to":                to,
			"type":              "interactive",
			"interactive": map[string]any{
				"type":   "button",
				"body":   map[string]any{"text": text},
				"action": map[string]any{"buttons": btns},
			},
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/"+m.phoneNumberID+"/messages",
		bytes.NewReader(b),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.token)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.New(
			"whatsapp api error: " +
				resp.Status +
				" body=" + string(respBody),
		)
	}

	return nil
}
