package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/events"
)

const webhookTimeout = 5 * time.Second

// NotificationService logs relay events and forwards them to an optional webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	http       *http.Client
	inflight   sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		http:       &http.Client{Timeout: webhookTimeout},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTextExtracted, n.handleTextExtracted)
	n.dispatcher.Subscribe(events.EventTicketSubmitted, n.handleTicketSubmitted)
	n.dispatcher.Subscribe(events.EventAttachmentUploaded, n.handleAttachmentUploaded)
}

// Wait blocks until in-flight webhook deliveries finish.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) handleTextExtracted(ctx context.Context, event events.Event) error {
	n.logger.Info("TextExtracted", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketSubmitted", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleAttachmentUploaded(ctx context.Context, event events.Event) error {
	n.logger.Info("AttachmentUploaded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

// sendWebhook delivers the event in the background; the inbound request
// never waits on it and never sees its failures.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode webhook event", zap.Error(err))
		return
	}

	detached := context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		reqCtx, cancel := context.WithTimeout(detached, webhookTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			n.logger.Warn("build webhook request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		res, err := n.http.Do(req)
		if err != nil {
			n.logger.Warn("webhook delivery failed", zap.String("event_type", string(event.Type)), zap.Error(err))
			return
		}
		defer res.Body.Close()
		if res.StatusCode >= 300 {
			n.logger.Warn("webhook rejected event",
				zap.String("event_type", string(event.Type)),
				zap.Int("status_code", res.StatusCode))
		}
	}()
}
