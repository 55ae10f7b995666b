package kafka

import (
	"context"
	"testing"
	"time"
)

func waitClosedOrFatal(t *testing.T, p *Producer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitClosed did not return")
	}
}

func TestProducerShutdown(t *testing.T) {
	t.Run("close then cancel releases WaitClosed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"localhost:9092"}, "orders-test", 8)
		p.Start(ctx)

		p.Close()
		cancel()
		waitClosedOrFatal(t, p)
	})

	t.Run("cancel then close does not panic", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"localhost:9092"}, "orders-test", 8)
		p.Start(ctx)

		cancel()
		waitClosedOrFatal(t, p)
		p.Close()
	})

	t.Run("cancel alone releases WaitClosed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"localhost:9092"}, "orders-test", 8)
		p.Start(ctx)

		cancel()
		waitClosedOrFatal(t, p)
	})
}
