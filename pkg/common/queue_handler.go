package common

import (
	"iter"
	"slices"
	"sync"
	"time"
)

// QueueProcessor is a function that processes a batch of items from the queue.
type QueueProcessor[V any] func(items []V)

// QueueHandler collects items and hands them to the processor in chunks,
// either when the interval elapses or when Flush is called.
type QueueHandler[V any] struct {
	mu        sync.Mutex
	queue     []V
	processor QueueProcessor[V]
	chunkSize int
	interval  time.Duration
	flush     chan chan struct{}
	done      chan struct{}
	stopped   sync.Once
	wg        sync.WaitGroup
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler[V any](processor QueueProcessor[V], chunkSize int, interval time.Duration) *QueueHandler[V] {
	if interval <= 0 {
		interval = time.Second
	}
	q := &QueueHandler[V]{
		queue:     make([]V, 0),
		processor: processor,
		chunkSize: max(chunkSize, 1),
		interval:  interval,
		flush:     make(chan chan struct{}),
		done:      make(chan struct{}),
	}
	q.wg.Add(1)
	go q.processQueue()
	return q
}

// Add adds an item to the queue.
func (h *QueueHandler[V]) Add(item ...V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, item...)
}

func (h *QueueHandler[V]) AddIter(item iter.Seq[V]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, slices.Collect(item)...)
}

func (h *QueueHandler[V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Flush blocks until everything queued so far has been processed.
func (h *QueueHandler[V]) Flush() {
	ack := make(chan struct{})
	select {
	case h.flush <- ack:
		<-ack
	case <-h.done:
	}
}

// Stop drains the queue and stops the background worker.
func (h *QueueHandler[V]) Stop() {
	h.stopped.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

func (h *QueueHandler[V]) drain() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		items := h.queue[:min(h.chunkSize, len(h.queue))]
		h.queue = h.queue[len(items):]
		h.mu.Unlock()

		h.processor(items)
	}
}

func (h *QueueHandler[V]) processQueue() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.drain()
		case ack := <-h.flush:
			h.drain()
			close(ack)
		case <-h.done:
			h.drain()
			return
		}
	}
}
