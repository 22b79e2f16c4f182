package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hearthchat/moderation/pkg/robusthttp"
)

type SlackNotifier struct {
	SlackWebhookURL string
	// defaults to a retrying client
	Client *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          robusthttp.NewClient(robusthttp.WithMaxRetries(2)),
	}
}

func (n *SlackNotifier) SendDecision(ctx context.Context, dec *Decision) error {
	return n.sendSlackMsg(ctx, slackBody("⚠️ Moderation Decision ⚠️\n", dec))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK || string(respBody) != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(header string, dec *Decision) string {
	msg := header
	msg += fmt.Sprintf("author `%s` / content `%s`\n", dec.AuthorID, dec.ContentID)
	msg += fmt.Sprintf("Action: `%s` (%s), risk %.1f\n", dec.Action, dec.Severity, dec.RiskScore)
	if len(dec.Reasons) > 0 {
		msg += fmt.Sprintf("Reasons: `%s`\n", strings.Join(dec.Reasons, ", "))
	}
	if dec.QueueItemID != "" {
		msg += fmt.Sprintf("Queued for review: `%s`\n", dec.QueueItemID)
	}
	return msg
}
