package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/go-food-api/internal/model"
)

const idempotencyTTL = 24 * time.Hour

var (
	errMalformed = errors.New("malformed message")
	errTransient = errors.New("transient failure")
)

type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

type UserLinker interface {
	AddOrderRef(ctx context.Context, userID, orderID uuid.UUID) error
}

type RestaurantLinker interface {
	AddOrderRef(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error
}

// IdempotencyStore remembers which messages were already applied.
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

// BackrefWorker re-applies the user and restaurant back-references of placed
// orders. The appends have set semantics so replays are harmless.
type BackrefWorker struct {
	channel *amqp.Channel
	orders  OrderReader
	users   UserLinker
	rests   RestaurantLinker
	seen    IdempotencyStore
	log     *slog.Logger
	done    chan struct{}
}

func NewBackrefWorker(
	ch *amqp.Channel,
	orders OrderReader,
	users UserLinker,
	rests RestaurantLinker,
	seen IdempotencyStore,
	log *slog.Logger,
) *BackrefWorker {
	return &BackrefWorker{
		channel: ch,
		orders:  orders,
		users:   users,
		rests:   rests,
		seen:    seen,
		log:     log,
		done:    make(chan struct{}),
	}
}

func (w *BackrefWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(OrderPlacedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("backref worker started", "queue", OrderPlacedQueue)
	return nil
}

func (w *BackrefWorker) Stop() { close(w.done) }

func (w *BackrefWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	err := w.handle(ctx, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errTransient):
		w.log.Warn("requeue order message", "error", err)
		_ = msg.Nack(false, true)
	default:
		w.log.Error("dead-letter order message", "error", err)
		_ = msg.Nack(false, false)
	}
}

func (w *BackrefWorker) handle(ctx context.Context, body []byte) error {
	var placed model.OrderPlacedMessage
	if err := json.Unmarshal(body, &placed); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if placed.OrderID == uuid.Nil {
		return fmt.Errorf("%w: missing order_id", errMalformed)
	}

	log := w.log.With("order_id", placed.OrderID, "user_id", placed.UserID)

	key := "order_backrefs:" + placed.OrderID.String()
	done, err := w.seen.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: check idempotency key: %v", errTransient, err)
	}
	if done {
		log.Info("order back-references already applied, skipping")
		return nil
	}

	order, err := w.orders.GetByID(ctx, placed.OrderID)
	if err != nil {
		return fmt.Errorf("%w: get order: %v", errTransient, err)
	}
	if order == nil {
		log.Info("order deleted before back-references were applied")
		return nil
	}

	if err := w.users.AddOrderRef(ctx, order.UserID, order.ID); err != nil {
		return fmt.Errorf("%w: link order to user: %v", errTransient, err)
	}
	if err := w.rests.AddOrderRef(ctx, order.RestaurantIDs, order.ID); err != nil {
		return fmt.Errorf("%w: link order to restaurants: %v", errTransient, err)
	}

	if err := w.seen.Mark(ctx, key, idempotencyTTL); err != nil {
		log.Error("set idempotency key", "error", err)
	}
	log.Info("order back-references applied", "restaurant_ids", order.RestaurantIDs)
	return nil
}

type redisIdempotency struct{ client *redis.Client }

func NewRedisIdempotencyStore(client *redis.Client) IdempotencyStore {
	return &redisIdempotency{client: client}
}

func (r *redisIdempotency) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *redisIdempotency) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, key, "1", ttl).Err()
}
