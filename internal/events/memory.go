package events

import (
	"context"
	"sync"
)

// Handler consumes a single message delivered by MemoryBus.
type Handler func(ctx context.Context, key string, value []byte)

type delivery struct {
	topic string
	key   string
	value []byte
}

// MemoryBus is an in-process bus with the same delivery contract the
// Kafka topic gives us: messages sharing a key are handled in publish
// order, one at a time. A single dispatcher goroutine delivers every
// message to every subscriber sequentially, which is a stronger (total)
// order and therefore a valid stand-in for tests and local runs.
type MemoryBus struct {
	mu    sync.Mutex
	subs  map[string][]Handler
	queue chan delivery
	wg    sync.WaitGroup
	done  chan struct{}
	once  sync.Once
}

func NewMemoryBus() *MemoryBus {
	b := &MemoryBus{
		subs:  make(map[string][]Handler),
		queue: make(chan delivery, 256),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *MemoryBus) Publish(_ context.Context, topic, key string, value []byte) error {
	b.wg.Add(1)
	b.queue <- delivery{topic: topic, key: key, value: value}
	return nil
}

func (b *MemoryBus) dispatch() {
	for {
		select {
		case d := <-b.queue:
			b.mu.Lock()
			handlers := append([]Handler(nil), b.subs[d.topic]...)
			b.mu.Unlock()
			for _, h := range handlers {
				h(context.Background(), d.key, d.value)
			}
			b.wg.Done()
		case <-b.done:
			return
		}
	}
}

// Drain blocks until every published message, including messages
// published by handlers while draining, has been delivered.
func (b *MemoryBus) Drain() {
	b.wg.Wait()
}

func (b *MemoryBus) Close() {
	b.once.Do(func() { close(b.done) })
}
