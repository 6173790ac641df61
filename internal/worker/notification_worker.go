package worker

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/service"
)

// StartNotificationWorker registers notification handlers and returns a
// drain function for shutdown. Drain waits at most timeout for in-flight
// webhook deliveries.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger, timeout time.Duration) (drain func()) {
	if notifications == nil {
		return func() {}
	}
	notifications.RegisterHandlers()

	return func() {
		done := make(chan struct{})
		go func() {
			notifications.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			logger.Warn("notification drain timed out", zap.Duration("timeout", timeout))
		}
	}
}
