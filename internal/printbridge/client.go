package printbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cashdrawer "pos-hardware/internal/cashdrawer/domain"
)

// Sender hands kick command descriptors to the local print bridge agent.
type Sender interface {
	SendKick(ctx context.Context, cmd cashdrawer.KickCommand) error
}

// Client is a minimal client for the print bridge command surface.
// Command delivery to the physical drawer is the agent's responsibility.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a print bridge client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("printbridge: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SendKick posts a kick command descriptor. No-op commands are not sent.
func (c *Client) SendKick(ctx context.Context, cmd cashdrawer.KickCommand) error {
	if c == nil {
		return errors.New("printbridge: nil client")
	}
	if cmd.NoOp {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/commands/drawer-kick", cmd, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("printbridge: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
