package delivery

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/webhookd/webhookd/internal/notifier"
	"github.com/webhookd/webhookd/internal/queue"
)

// Pool supervises a fixed number of Workers sharing one task queue.
type Pool struct {
	queue   *queue.Queue[Task]
	workers []*Worker
	wg      sync.WaitGroup
}

// Config configures a new delivery Pool.
type Config struct {
	WorkerCount    int
	QueueCapacity  int
	RequestTimeout time.Duration
	RetryIntervals []time.Duration
	Subscriptions  SubscriptionResolver
	Logs           LogStore
	Notifier       notifier.Service
	Logger         *slog.Logger
}

// NewPool constructs a pool and its backing queue, but does not start any
// workers yet; call Start for that.
func NewPool(cfg Config) *Pool {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	q := queue.New[Task](cfg.QueueCapacity)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout + 5*time.Second}

	p := &Pool{queue: q}
	p.workers = make([]*Worker, cfg.WorkerCount)
	for i := range p.workers {
		p.workers[i] = &Worker{
			ID:             i,
			Queue:          q,
			Subscriptions:  cfg.Subscriptions,
			Logs:           cfg.Logs,
			HTTPClient:     httpClient,
			RequestTimeout: cfg.RequestTimeout,
			RetryIntervals: cfg.RetryIntervals,
			Notifier:       cfg.Notifier,
			Logger:         cfg.Logger,
		}
	}
	return p
}

// Start launches every worker's run loop in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Submit enqueues task without blocking the caller. It returns
// queue.ErrFull when the queue has no free capacity, which HTTP handlers
// should translate into a 503.
func (p *Pool) Submit(task Task) error {
	return p.queue.TryPush(task)
}

// Stop pushes one end marker per worker, unblocking every Pop call, then
// waits for all worker goroutines to return.
func (p *Pool) Stop() {
	for range p.workers {
		p.queue.PushEndMarker(Task{End: true})
	}
	p.wg.Wait()
}

// QueueLen reports how many tasks are currently buffered, for metrics.
func (p *Pool) QueueLen() int {
	return p.queue.Len()
}
