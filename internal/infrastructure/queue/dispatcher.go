package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmadmin/access-core/internal/core/domain"
	"github.com/crmadmin/access-core/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher routes auth events to a fixed set of workers using consistent
// hashing on the event's shard key, so events for one account are written in
// order. Record never blocks the request path: when a worker's buffer is full
// the event is dropped and reported through OnDrop.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	repo    ports.AuditRepository
	log     zerolog.Logger

	// OnDrop, if set, is called for every event discarded because its
	// worker's buffer was full or the dispatcher was closed.
	OnDrop func(domain.AuthEvent)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// Non-positive sizes fall back to the defaults.
func NewDispatcher(numWorkers, bufferSize int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if bufferSize <= 0 {
		bufferSize = channelBuffer
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, bufferSize)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Close has been
// called and their buffers are drained.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Record enqueues e on the worker responsible for its shard key.
func (d *Dispatcher) Record(e domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}
	select {
	case d.workers[d.shardIndex(e.ShardKey())] <- e:
	default:
		d.drop(e, "worker buffer full")
	}
}

// Close stops accepting events and waits for queued ones to be written or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a shard key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) drop(e domain.AuthEvent, reason string) {
	d.log.Warn().
		Str("type", string(e.Type)).
		Str("email", e.Email).
		Str("reason", reason).
		Msg("auth event dropped")
	if d.OnDrop != nil {
		d.OnDrop(e)
	}
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	for event := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := d.repo.InsertEvent(ctx, &event); err != nil {
			d.log.Error().Err(err).
				Str("type", string(event.Type)).
				Str("shard_key", event.ShardKey()).
				Int("worker_id", id).
				Msg("auth event write failed")
		}
		cancel()
	}
}
