package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher decouples the engine's transactional path from notification
// delivery: events are queued, aggregated into small batches, and handed to
// a worker pool that pushes them through the Producer. Shutdown drains the
// queue before closing the producer.
type Dispatcher struct {
	topic      string
	batchSize  int
	flushEvery time.Duration

	producer Producer
	logger   *zap.Logger

	input   chan Event
	batches chan []Event
	done    chan struct{}
	group   *errgroup.Group
	once    sync.Once
}

func NewDispatcher(producer Producer, topic string, workers, batchSize int, flushEvery time.Duration, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		topic:      topic,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		producer:   producer,
		logger:     logger,
		input:      make(chan Event, workers*batchSize*2),
		batches:    make(chan []Event, workers*2),
		done:       make(chan struct{}),
	}
	d.group = &errgroup.Group{}
	d.start(workers)
	return d
}

func (d *Dispatcher) start(workers int) {
	d.group.Go(d.runAggregator)
	for i := 0; i < workers; i++ {
		id := i
		d.group.Go(func() error {
			return d.runWorker(id)
		})
	}
}

// Publish queues an event for delivery. Once shutdown has begun the event is
// logged directly so nothing is silently lost.
func (d *Dispatcher) Publish(e Event) {
	select {
	case <-d.done:
		d.logDirect(e)
		return
	default:
	}
	select {
	case d.input <- e:
	case <-d.done:
		d.logDirect(e)
	}
}

// Shutdown stops accepting events, flushes everything already queued, and
// closes the producer.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.once.Do(func() {
		close(d.done)

		finished := make(chan struct{})
		go func() {
			if err := d.group.Wait(); err != nil {
				d.logger.Error("notification pipeline finished with error", zap.Error(err))
			}
			close(finished)
		}()

		select {
		case <-finished:
			d.logger.Info("notification dispatcher drained")
		case <-ctx.Done():
			d.logger.Warn("notification dispatcher shutdown interrupted")
		}

		if err := d.producer.Close(); err != nil {
			d.logger.Error("failed to close notification producer", zap.Error(err))
		}
	})
}

func (d *Dispatcher) runAggregator() error {
	var (
		batch    []Event
		timer    *time.Timer
		timeoutC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		// Drain whatever arrived before shutdown won the race.
		for {
			select {
			case e := <-d.input:
				batch = append(batch, e)
			default:
				if len(batch) > 0 {
					d.batches <- batch
				}
				close(d.batches)
				return
			}
		}
	}()

	for {
		select {
		case e := <-d.input:
			batch = append(batch, e)
			if len(batch) >= d.batchSize {
				d.batches <- batch
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(d.flushEvery)
				timeoutC = timer.C
			}

		case <-timeoutC:
			d.batches <- batch
			batch = nil
			timeoutC = nil

		case <-d.done:
			return nil
		}
	}
}

func (d *Dispatcher) runWorker(id int) error {
	for batch := range d.batches {
		for _, e := range batch {
			payload, err := json.Marshal(e)
			if err != nil {
				d.logger.Error("failed to marshal notification", zap.Error(err))
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			err = d.producer.SendMessage(ctx, d.topic, []byte(e.LockerID), payload)
			cancel()
			if err != nil {
				d.logger.Error("failed to deliver notification",
					zap.Int("worker", id),
					zap.String("kind", string(e.Kind)),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (d *Dispatcher) logDirect(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		d.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}
	d.logger.Info("notification (direct)", zap.ByteString("event", payload))
}
