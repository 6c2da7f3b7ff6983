package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryQueueKey = "eventdesk:notifications:delivery"

// DeliveryQueue hands queued notifications to delivery workers through a
// Redis list. LPUSH/BRPOP gives FIFO delivery and lets workers run in any
// process.
type DeliveryQueue struct {
	client redis.Cmdable
}

func NewDeliveryQueue(client redis.Cmdable) *DeliveryQueue {
	return &DeliveryQueue{client: client}
}

func (q *DeliveryQueue) Enqueue(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.client.LPush(ctx, deliveryQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next notification. Returns false when
// the queue stayed empty.
func (q *DeliveryQueue) Dequeue(ctx context.Context, timeout time.Duration) (Notification, bool, error) {
	result, err := q.client.BRPop(ctx, timeout, deliveryQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Notification{}, false, nil
		}
		return Notification{}, false, fmt.Errorf("dequeue notification: %w", err)
	}
	// BRPop returns [key, value].
	var n Notification
	if err := json.Unmarshal([]byte(result[1]), &n); err != nil {
		return Notification{}, false, fmt.Errorf("unmarshal notification: %w", err)
	}
	return n, true, nil
}

// Depth reports the number of queued notifications.
func (q *DeliveryQueue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.LLen(ctx, deliveryQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}
