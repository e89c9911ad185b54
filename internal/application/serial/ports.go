// Package serial provides the application services behind the REST API, the
// CLI remote mode and the export worker: serial extraction and generation,
// pattern administration and serial exports. Handlers talk to these services
// only; the engine and the infrastructure adapters stay behind them.
package serial

import (
	"context"
	"time"

	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/storage/minio"
)

// EventPublisher emits domain events. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// ObjectStore stores rendered exports. *minio.ExportStore satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, req *minio.UploadRequest) (*minio.UploadResult, error)
	PresignedURL(ctx context.Context, key string) (string, time.Time, error)
}

// Locker hands out distributed locks. *redis.LockFactory satisfies it.
type Locker interface {
	NewLock(name string) redis.Lock
}

// PatternSource supplies patterns to the extraction service.
type PatternSource interface {
	GetPattern(ctx context.Context, id int64) (*domainSerial.SerialPattern, error)
	ApplicablePatterns(ctx context.Context, productID *int64) ([]*domainSerial.SerialPattern, error)
}

// publish sends an event. Failures are logged, never returned.
func publish(ctx context.Context, pub EventPublisher, log logging.Logger, topic, eventType, key string, payload interface{}) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, topic, eventType, key, payload); err != nil {
		log.Warn("Failed to publish event",
			logging.String("topic", topic),
			logging.String("event_type", eventType),
			logging.Err(err))
	}
}

//Personal.AI order the ending
