package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/metrics"
	"ms-storefront/internal/models"
	"ms-storefront/internal/notify"
)

type Store interface {
	SaveOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	RecentOrders(ctx context.Context, n int) ([]models.Order, error)
	LastOrder(ctx context.Context) (*models.Order, error)
	AggregateStats(ctx context.Context) (models.OrderStats, error)
}

type SubmitGuard interface {
	Acquire(ctx context.Context, key, orderID string) (bool, error)
	Release(ctx context.Context, key, orderID string) error
}

type KafkaPublisher interface {
	PublishOrderCreated(ctx context.Context, order models.Order) error
	PublishOrderUpdated(ctx context.Context, order models.Order, previous models.OrderStatus) error
}

type Notifier interface {
	Dispatch(ctx context.Context, order models.Order) notify.Result
	NotifyStatusChange(ctx context.Context, order models.Order, previous models.OrderStatus) bool
}

type EventEmitter interface {
	Emit(event models.OrderEventDto)
}

type OrderService struct {
	Builder   *Builder
	Validator *Validator
	DB        Store
	Guard     SubmitGuard // optional
	Kafka     KafkaPublisher
	Notifier  Notifier
	Feed      EventEmitter // optional
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time

	// NotifyStatusChanges posts status updates to Telegram from here. Leave it off
	// when the bot process consumes order.updated events instead.
	NotifyStatusChanges bool
}

func NewOrderService(builder *Builder, validator *Validator, db Store, guard SubmitGuard, kafka KafkaPublisher, notifier Notifier, log *logger.Logger) *OrderService {
	return &OrderService{
		Builder:   builder,
		Validator: validator,
		DB:        db,
		Guard:     guard,
		Kafka:     kafka,
		Notifier:  notifier,
		Logger:    log,
		Now:       time.Now,
	}
}

// SubmissionKey identifies "the same selection from the same customer".
func SubmissionKey(o models.Order) string {
	return fmt.Sprintf("%s:%s:%s", o.CustomerPhone, o.Platform, o.AccountType)
}

// ---------------- ORDERS ----------------

// PlaceOrder runs build → validate → guard → persist → publish → notify.
// A rejected order is neither stored nor announced; notification failures never fail the call.
func (s *OrderService) PlaceOrder(ctx context.Context, form models.OrderForm) (*models.PlaceOrderResponse, error) {
	order := s.Builder.BuildOrder(form)

	// Step 1: Validate
	if err := s.Validator.Validate(order); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.Metrics.OrderRejected(vErr.Reason)
		}
		s.Logger.Warn("ORDER", fmt.Sprintf("Rejected submission for %s/%s: %v", order.Platform, order.AccountType, err))
		return nil, err
	}

	// Step 2: Duplicate-submission guard (fails open when Redis is unreachable)
	key := SubmissionKey(order)
	guarded := false
	if s.Guard != nil {
		ok, err := s.Guard.Acquire(ctx, key, order.OrderID)
		switch {
		case err != nil:
			s.Logger.Warn("ORDER", fmt.Sprintf("Submission guard unavailable, continuing: %v", err))
		case !ok:
			s.Metrics.OrderRejected("duplicate")
			return nil, ErrDuplicateSubmission
		default:
			guarded = true
		}
	}

	// Step 3: Persist
	if err := s.DB.SaveOrder(ctx, order); err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to save order %s: %v", order.OrderID, err))
		if guarded {
			_ = s.Guard.Release(ctx, key, order.OrderID)
		}
		return nil, &StorageError{Op: "save order", Err: err}
	}
	s.Logger.LogOrder("CREATED", order.OrderID, fmt.Sprintf("%s/%s %d EGP", order.Platform, order.AccountType, order.Price))
	s.Metrics.OrderPlaced(string(order.Platform), string(order.AccountType))

	// Step 4: Publish Kafka event
	if err := s.Kafka.PublishOrderCreated(ctx, order); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order created) %s: %v", order.OrderID, err))
	}
	if s.Feed != nil {
		s.Feed.Emit(models.NewOrderEventDto(models.OrderEventCreated, order, ""))
	}

	// Step 5: Notify
	res := s.Notifier.Dispatch(ctx, order)

	return &models.PlaceOrderResponse{
		Order:          order,
		WhatsAppURL:    res.WhatsAppURL,
		TelegramQueued: res.TelegramQueued,
	}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, storageErr("get order", err)
	}
	return order, nil
}

// UpdateStatus moves an order to any known status.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	newStatus := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.DB.GetOrderByID(ctx, id)
	if err != nil {
		return nil, storageErr("get order", err)
	}

	previous := order.Status
	now := s.Now().UTC().Truncate(time.Millisecond)
	if err := s.DB.UpdateStatus(ctx, id, newStatus, now); err != nil {
		return nil, storageErr("update status", err)
	}
	order.Status = newStatus
	order.LastUpdated = now

	s.Logger.LogOrder("STATUS", id, fmt.Sprintf("%s -> %s", previous, newStatus))
	s.Metrics.StatusUpdated(string(newStatus))

	if err := s.Kafka.PublishOrderUpdated(ctx, *order, previous); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order updated) %s: %v", id, err))
	}
	if s.Feed != nil {
		s.Feed.Emit(models.NewOrderEventDto(models.OrderEventUpdated, *order, previous))
	}
	if s.NotifyStatusChanges {
		s.Notifier.NotifyStatusChange(ctx, *order, previous)
	}

	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.DB.ListOrders(ctx)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return orders, nil
}

func (s *OrderService) RecentOrders(ctx context.Context, n int) ([]models.Order, error) {
	orders, err := s.DB.RecentOrders(ctx, n)
	if err != nil {
		return nil, storageErr("recent orders", err)
	}
	return orders, nil
}

func (s *OrderService) LastOrder(ctx context.Context) (*models.Order, error) {
	order, err := s.DB.LastOrder(ctx)
	if err != nil {
		return nil, storageErr("last order", err)
	}
	return order, nil
}

// Statistics is computed on demand from the store; nothing is cached.
func (s *OrderService) Statistics(ctx context.Context) (models.OrderStats, error) {
	stats, err := s.DB.AggregateStats(ctx)
	if err != nil {
		return models.OrderStats{}, storageErr("aggregate stats", err)
	}
	return stats, nil
}

// storageErr passes ErrOrderNotFound through and wraps everything else.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrOrderNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
