package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestWorkerKeepsConsumingWhenErrorBufferIsFull(t *testing.T) {
	c := &Consumer{workers: 1}
	jobs := make(chan kafka.Message)
	errs := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		c.runWorker(context.Background(), jobs, errs, func(context.Context, kafka.Message) error {
			return errors.New("handler boom")
		})
		close(done)
	}()

	// first failure fills the buffer; the rest must still be accepted
	for i := 0; i < 5; i++ {
		select {
		case jobs <- kafka.Message{}:
		case <-time.After(time.Second):
			t.Fatalf("worker blocked on error reporting after %d messages", i)
		}
	}
	close(jobs)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after jobs closed")
	}
}
