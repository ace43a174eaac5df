package sse

import (
	"context"
	"testing"
	"time"

	"ms-storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(platform models.Platform, id string) models.OrderEventDto {
	return models.NewOrderEventDto(models.OrderEventCreated, models.Order{OrderID: id, Platform: platform}, "")
}

func TestEmitReachesMatchingSubscribers(t *testing.T) {
	e := NewOrderFeedEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := e.Subscribe(ctx, "")
	ps5Only := e.Subscribe(ctx, models.PlatformPS5)
	assert.Equal(t, 2, e.ClientCount())

	e.Emit(event(models.PlatformPC, "ORD-1"))
	e.Emit(event(models.PlatformPS5, "ORD-2"))

	got := <-all
	assert.Equal(t, "ORD-1", got.Order.OrderID)
	got = <-all
	assert.Equal(t, "ORD-2", got.Order.OrderID)

	got = <-ps5Only
	assert.Equal(t, "ORD-2", got.Order.OrderID)
	select {
	case extra := <-ps5Only:
		t.Fatalf("unexpected event %s", extra.Order.OrderID)
	default:
	}
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	e := NewOrderFeedEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx, "")
	for i := 0; i < clientBuffer+5; i++ {
		e.Emit(event(models.PlatformPC, "ORD"))
	}
	assert.Len(t, ch, clientBuffer)
}

func TestUnsubscribeOnCancel(t *testing.T) {
	e := NewOrderFeedEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx, "")
	cancel()

	require.Eventually(t, func() bool { return e.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	// emitting after removal must not panic
	assert.NotPanics(t, func() { e.Emit(event(models.PlatformPC, "ORD")) })
}
