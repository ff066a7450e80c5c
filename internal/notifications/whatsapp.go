// Package notifications implements the outbound messaging channel used to
// alert the administrator about new requests. Delivery is best effort: a
// failure here is logged by the caller and never affects the ledger.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WhatsAppNotifier posts messages to a WhatsApp gateway webhook. The
// payload carries the destination phone, the free-text message and a
// ready-made wa.me link.
type WhatsAppNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWhatsAppNotifier creates a notifier targeting the given gateway URL.
func NewWhatsAppNotifier(webhookURL string) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Notify sends the message to the destination phone via the gateway.
func (n *WhatsAppNotifier) Notify(ctx context.Context, destination, message string) error {
	payload := webhookPayload{
		To:      destination,
		Message: message,
		Link:    WhatsAppLink(destination, message),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Remesa-Notifier/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("notification gateway returned status %d", resp.StatusCode)
}

// WhatsAppLink builds a wa.me deep link for the given phone and message.
func WhatsAppLink(phone, message string) string {
	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(message)
}
