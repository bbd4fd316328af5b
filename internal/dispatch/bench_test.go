package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

// BenchmarkPool_Submit measures hand-off latency to a warm pool.
func BenchmarkPool_Submit(b *testing.B) {
	p := New(Options{MaxWorkers: 64})
	defer p.Shutdown(time.Second)

	var wg sync.WaitGroup
	task := func(context.Context) { wg.Done() }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		p.Submit(task) //nolint:errcheck
	}
	wg.Wait()
}
