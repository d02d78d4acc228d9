package engine

import (
	"context"
	"sync"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
)

// SinkFunc adapts a function to the ActionSink interface.
type SinkFunc func(ctx context.Context, evt event.ActionEvent)

func (f SinkFunc) Record(ctx context.Context, evt event.ActionEvent) { f(ctx, evt) }

// MultiSink fans each event out to every sink in order. A nil entry is
// skipped.
type MultiSink []ActionSink

func (m MultiSink) Record(ctx context.Context, evt event.ActionEvent) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, evt)
		}
	}
}

// AsyncSink decouples a slow consumer from the reasoning loop: events are
// buffered on a channel and delivered by one worker goroutine. When the
// buffer is full the event is dropped rather than stalling the agent.
type AsyncSink struct {
	inner ActionSink
	ch    chan event.ActionEvent
	done  chan struct{}

	mu      sync.Mutex
	dropped int
}

// NewAsyncSink wraps inner with a buffer of the given size.
func NewAsyncSink(inner ActionSink, buffer int) *AsyncSink {
	s := &AsyncSink{
		inner: inner,
		ch:    make(chan event.ActionEvent, buffer),
		done:  make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *AsyncSink) drain() {
	defer close(s.done)
	for evt := range s.ch {
		s.inner.Record(context.Background(), evt)
	}
}

// Record queues the event, dropping it when the buffer is full.
func (s *AsyncSink) Record(_ context.Context, evt event.ActionEvent) {
	select {
	case s.ch <- evt:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (s *AsyncSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes buffered events and stops the worker.
func (s *AsyncSink) Close() {
	close(s.ch)
	<-s.done
}
