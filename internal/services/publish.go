// internal/services/publish.go
package services

import (
	"context"
	"time"

	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/logger"
)

const publishTimeout = 5 * time.Second

// publish sends a committed ledger event. The write already succeeded, so a broker
// failure is logged only.
func publish(ctx context.Context, publisher events.Publisher, event events.Event) {
	if publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := publisher.Publish(ctx, event); err != nil {
		logger.LogError("services", "publish", "failed to publish ledger event", event.Type, err)
	}
}
