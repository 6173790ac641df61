package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
	"github.com/spec-kit/desk-relay/internal/events"
)

func TestNotificationWebhookDelivery(t *testing.T) {
	var (
		mu       sync.Mutex
		received []events.EventType
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e struct {
			Type events.EventType `json:"type"`
		}
		_ = json.NewDecoder(r.Body).Decode(&e)
		mu.Lock()
		received = append(received, e.Type)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL})
	n.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	publishEvent(ctx, dispatcher, zap.NewNop(), events.Event{Type: events.EventTicketSubmitted, TicketID: "T-1"})
	publishEvent(ctx, dispatcher, zap.NewNop(), events.Event{Type: events.EventAttachmentUploaded, TicketID: "T-1"})
	// delivery outlives the request context
	cancel()
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != events.EventTicketSubmitted {
		t.Fatalf("unexpected deliveries %v", received)
	}
}

func TestNotificationWithoutWebhook(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{})
	n.RegisterHandlers()
	if err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTextExtracted}); err != nil {
		t.Fatal(err)
	}
	n.Wait()
}
