package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Event names dispatched to the external notification fan-out.
const (
	EventVoucherIssued       = "voucher_issued"
	EventVoucherReassigned   = "voucher_reassigned"
	EventVoucherExpiring     = "voucher_expiring"
	EventRedemptionRequested = "redemption_requested"
	EventRedemptionApproved  = "redemption_approved"
	EventRedemptionRejected  = "redemption_rejected"
	EventRedemptionReceipt   = "redemption_receipt"
)

// Notifier hands events to the external notification dispatcher. Delivery is
// best-effort: implementations must never block money paths, and callers must
// never roll back on a failed dispatch.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, event string, payload map[string]any)
}

// message is the envelope published to the dispatch channel.
type message struct {
	UserID  uint64         `json:"user_id"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// RedisNotifier publishes notification events to a Redis channel consumed by
// the delivery service.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewRedisNotifier connects a notifier to the given Redis address and channel.
func NewRedisNotifier(addr, channel string) *RedisNotifier {
	if channel == "" {
		channel = "notifications"
	}
	return &RedisNotifier{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		timeout: 2 * time.Second,
	}
}

// Notify publishes the event. Failures are logged and swallowed.
func (n *RedisNotifier) Notify(ctx context.Context, userID uint64, event string, payload map[string]any) {
	if n == nil || n.client == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	body, errMarshal := json.Marshal(message{
		UserID:  userID,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("notify: marshal event failed")
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if errPublish := n.client.Publish(publishCtx, n.channel, body).Err(); errPublish != nil {
		log.WithError(errPublish).WithField("event", event).Warn("notify: publish failed")
	}
}

// Close releases the underlying Redis connection.
func (n *RedisNotifier) Close() error {
	if n == nil || n.client == nil {
		return nil
	}
	return n.client.Close()
}

// Nop is a Notifier that drops every event. Used when no dispatcher is
// configured and in tests.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, uint64, string, map[string]any) {}
