package logic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/internal/repository"
	"github.com/ydjemai93/test-drive/pkg/logger"
)

type WebhookService struct {
	repo *repository.WebhookRepository
}

func NewWebhookService(repo *repository.WebhookRepository) *WebhookService {
	return &WebhookService{repo: repo}
}

// Dispatch notifies all matching webhooks that a call reached a terminal
// state.
func (s *WebhookService) Dispatch(call *model.CallRecord) {
	webhooks, err := s.repo.FindEnabled()
	if err != nil {
		logger.Log.Errorf("Failed to fetch webhooks: %v", err)
		return
	}

	for _, wh := range webhooks {
		if !eventMatches(wh.Events, call.Status) {
			continue
		}
		go s.sendWebhook(wh, call)
	}
}

// eventMatches checks a comma separated status filter ("*" matches all).
func eventMatches(events, status string) bool {
	events = strings.TrimSpace(events)
	if events == "" || events == "*" {
		return true
	}
	for _, e := range strings.Split(events, ",") {
		if strings.TrimSpace(e) == status {
			return true
		}
	}
	return false
}

func (s *WebhookService) sendWebhook(wh model.Webhook, call *model.CallRecord) {
	// 1. Render Template
	content := defaultContent(call)
	if wh.Template != "" {
		tmpl, err := template.New("msg").Parse(wh.Template)
		if err == nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, call); err == nil {
				content = buf.String()
			}
		}
	}

	// 2. Format Payload based on Platform
	var payload []byte
	var err error

	switch wh.Platform {
	case "telegram":
		body := map[string]interface{}{
			"text":       content,
			"parse_mode": "Markdown",
		}
		if wh.ChannelID != "" {
			body["chat_id"] = wh.ChannelID
		}
		payload, err = json.Marshal(body)

	case "slack":
		payload, err = json.Marshal(map[string]interface{}{"text": content})

	default:
		// Generic JSON
		body := map[string]interface{}{
			"text": content,
			"call": call,
		}
		payload, err = json.Marshal(body)
	}

	if err != nil {
		logger.Log.Errorf("Failed to marshal webhook payload: %v", err)
		return
	}

	// 3. Send Request
	req, err := http.NewRequest("POST", wh.URL, bytes.NewBuffer(payload))
	if err != nil {
		logger.Log.Errorf("Failed to create request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Log.Errorf("Failed to send webhook to %s: %v", wh.URL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.Log.Errorf("Webhook %s returned status: %d", wh.URL, resp.StatusCode)
	} else {
		logger.Log.Infof("Webhook sent to %s", wh.URL)
	}
}

func defaultContent(call *model.CallRecord) string {
	var b strings.Builder
	b.WriteString("Call to ")
	b.WriteString(call.PhoneNumber)
	b.WriteString(": ")
	b.WriteString(call.Status)
	if call.Disposition != "" {
		b.WriteString(" (")
		b.WriteString(call.Disposition)
		b.WriteString(")")
	}
	return b.String()
}
