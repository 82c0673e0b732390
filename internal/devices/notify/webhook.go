package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	devices "pos-hardware/internal/devices/domain"
)

// WebhookNotifier reports device status transitions to an ops webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string, logger *log.Logger) *WebhookNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// NotifyTransition sends a transition alert. Delivery is best effort; a
// failed webhook never affects the monitoring loop.
func (n *WebhookNotifier) NotifyTransition(ctx context.Context, device devices.Device, from, to devices.DeviceStatus, message string) {
	if n == nil || n.url == "" {
		return
	}
	if err := n.send(ctx, device, from, to, message); err != nil {
		n.logger.Printf("device notify: webhook error: %v", err)
	}
}

func (n *WebhookNotifier) send(ctx context.Context, device devices.Device, from, to devices.DeviceStatus, message string) error {
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatTransition(device, from, to, message)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("device notify: non-2xx")
	}
	return nil
}

func formatTransition(device devices.Device, from, to devices.DeviceStatus, message string) string {
	var b strings.Builder
	b.WriteString("[Device Alert]\n")
	fmt.Fprintf(&b, "Device: %s", device.ID)
	if device.Name != "" {
		fmt.Fprintf(&b, " (%s)", device.Name)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Role: %s\n", device.Role)
	fmt.Fprintf(&b, "Status: %s -> %s\n", from, to)
	if message != "" {
		fmt.Fprintf(&b, "Detail: %s\n", message)
	}
	return strings.TrimSpace(b.String())
}
