package common

import (
	"sync"
	"testing"
	"time"
)

func TestQueueHandlerChunks(t *testing.T) {
	var (
		mu     sync.Mutex
		chunks [][]int
	)
	q := NewQueueHandler(func(items []int) {
		mu.Lock()
		defer mu.Unlock()
		chunks = append(chunks, append([]int(nil), items...))
	}, 2, time.Hour)
	defer q.Stop()

	q.Add(1, 2, 3)
	q.Add(4, 5)
	q.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %v", chunks)
	}
	if len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Errorf("unexpected last chunk %v", chunks[2])
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueueHandlerStopDrains(t *testing.T) {
	processed := 0
	q := NewQueueHandler(func(items []string) {
		processed += len(items)
	}, 10, time.Hour)
	q.Add("a", "b")
	q.Stop()
	if processed != 2 {
		t.Errorf("expected queue drained on stop, got %d", processed)
	}
	// flush after stop must not block
	q.Flush()
	q.Stop()
}
