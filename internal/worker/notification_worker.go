package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker registers notification handlers and returns a
// function that drains in-flight deliveries for at most grace.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) func(grace time.Duration) {
	if notificationService == nil {
		return func(time.Duration) {}
	}
	notificationService.RegisterHandlers()

	return func(grace time.Duration) {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := notificationService.Wait(ctx); err != nil {
			logger.Warn("notification deliveries still pending at shutdown", zap.Error(err))
		}
	}
}
