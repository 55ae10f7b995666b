package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when processing succeeded and the offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		go c.runWorker(ctx, jobs, errs, h)
	}

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// drain worker errors without blocking the dispatcher
		select {
		case e := <-errs:
			slog.Error("consumer worker error", "err", e)
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}

func (c *Consumer) runWorker(ctx context.Context, jobs <-chan kafka.Message, errs chan<- error, h Handler) {
	for m := range jobs {
		if err := h(ctx, m); err != nil {
			reportErr(errs, err)
			continue
		}
		if err := c.r.CommitMessages(ctx, m); err != nil {
			reportErr(errs, err)
		}
	}
}

// reportErr hands the error to the dispatcher for backoff. The dispatcher
// only drains between reads, so when the buffer is full the error is logged
// here instead of blocking the worker.
func reportErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
		slog.Error("consumer worker error", "err", err)
	}
}
