package sse

import (
	"context"
	"sync"

	"ms-storefront/internal/models"
)

const clientBuffer = 10

type subscriber struct {
	ch       chan models.OrderEventDto
	platform models.Platform // empty means every platform
}

// OrderFeedEmitter fans order events out to connected admin SSE clients.
type OrderFeedEmitter struct {
	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

func NewOrderFeedEmitter() *OrderFeedEmitter {
	return &OrderFeedEmitter{clients: make(map[*subscriber]struct{})}
}

// Subscribe registers a client until ctx is done; the channel is closed afterwards.
func (e *OrderFeedEmitter) Subscribe(ctx context.Context, platform models.Platform) <-chan models.OrderEventDto {
	sub := &subscriber{ch: make(chan models.OrderEventDto, clientBuffer), platform: platform}

	e.mu.Lock()
	e.clients[sub] = struct{}{}
	e.mu.Unlock()

	// Remove client when context is done
	go func() {
		<-ctx.Done()
		e.remove(sub)
	}()

	return sub.ch
}

// Emit broadcasts without blocking; a client with a full buffer misses the event.
func (e *OrderFeedEmitter) Emit(event models.OrderEventDto) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for sub := range e.clients {
		if sub.platform != "" && sub.platform != event.Order.Platform {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (e *OrderFeedEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}

func (e *OrderFeedEmitter) remove(sub *subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.clients[sub]; ok {
		delete(e.clients, sub)
		close(sub.ch)
	}
}
