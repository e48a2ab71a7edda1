package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"github.com/lakshayybhati/liftor-worker/internal/repository"
	"go.uber.org/zap"
)

const (
	expoPushURL   = "https://exp.host/--/api/v2/push/send"
	maxPushTokens = 5
)

// Notifier delivers best-effort notifications after terminal job
// transitions. Every step may fail silently; notification trouble never
// affects job state.
type Notifier interface {
	Send(ctx context.Context, userID, title, body string, data map[string]interface{})
}

type notifier struct {
	notifications repository.NotificationRepository
	httpClient    *http.Client
}

// NewNotifier creates a new instance of Notifier
func NewNotifier(notifications repository.NotificationRepository) Notifier {
	return &notifier{
		notifications: notifications,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

type pushMessage struct {
	To    []string               `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

func (n *notifier) Send(ctx context.Context, userID, title, body string, data map[string]interface{}) {
	tokens, err := n.notifications.ListPushTokens(ctx, userID, maxPushTokens)
	if err != nil {
		logger.Warn("push token lookup failed", zap.String("user_id", userID), zap.Error(err))
	} else if len(tokens) > 0 {
		n.sendPush(ctx, tokens, title, body, data)
	}

	screen := ""
	if s, ok := data["screen"].(string); ok {
		screen = s
	}
	record := &model.UserNotification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   "plan_generation",
		Data:   model.JSONMap(data),
	}
	if screen != "" {
		record.Screen = &screen
	}
	if err := n.notifications.Insert(ctx, record); err != nil {
		logger.Warn("in-app notification insert failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (n *notifier) sendPush(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) {
	message := pushMessage{To: tokens, Title: title, Body: body, Data: data}
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, expoPushURL, bytes.NewBuffer(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		logger.Warn("push delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		logger.Warn("push service rejected batch", zap.Int("status", resp.StatusCode))
	}
}
