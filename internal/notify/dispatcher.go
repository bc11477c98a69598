package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sink delivers one event somewhere external. Delivery errors are
// logged by the dispatcher, never surfaced to the caller.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Dispatcher queues events and delivers them on a background worker.
// Notify never blocks; when the queue is full the event is dropped and
// counted, trading completeness for request latency.
type Dispatcher struct {
	queue chan Event
	sinks []Sink
	log   *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(queueSize int, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		queue: make(chan Event, queueSize),
		sinks: sinks,
		log:   log,
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues the event without blocking.
func (d *Dispatcher) Notify(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("notification queue full, event dropped",
			zap.String("event", eventName(ev)))
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		for _, sink := range d.sinks {
			if err := sink.Deliver(context.Background(), ev); err != nil {
				d.log.Warn("notification delivery failed",
					zap.String("event", eventName(ev)),
					zap.Error(err))
			}
		}
	}
}

// Close drains the queue and stops the worker. Events enqueued after
// Close panic, so callers stop producing first.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.queue) })
	<-d.done
}

func eventName(ev Event) string {
	switch ev.(type) {
	case InquiryEvent:
		return "inquiry"
	case FeedbackEvent:
		return "feedback"
	case SearchMissEvent:
		return "search_miss"
	case DatasetEvent:
		return "dataset"
	default:
		return "unknown"
	}
}
