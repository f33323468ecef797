package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	maxBatch     = 64
	writeTimeout = 5 * time.Second
)

// Recorder buffers entries and writes them from a single goroutine so that
// match actors never wait on the database. A full buffer drops entries.
type Recorder struct {
	store   Store
	logger  *zap.Logger
	entries chan Entry
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewRecorder starts a recorder writing to store.
func NewRecorder(store Store, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		store:   store,
		logger:  logger,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues e. It reports false when the entry was dropped.
func (r *Recorder) Record(e Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	select {
	case r.entries <- e:
		return true
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("journal buffer full, dropping entry",
			zap.String("match_id", e.MatchID),
			zap.Int64("seq", e.Seq),
			zap.Int64("dropped", n),
		)
		return false
	}
}

// Dropped counts entries lost to a full buffer.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting entries and waits for the backlog to be written.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	batch := make([]Entry, 0, maxBatch)
	for e := range r.entries {
		batch = append(batch[:0], e)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-r.entries:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		r.flush(batch)
	}
}

func (r *Recorder) flush(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.Append(ctx, batch...); err != nil {
		r.logger.Error("failed to write turn log",
			zap.String("match_id", batch[0].MatchID),
			zap.Int("entries", len(batch)),
			zap.Error(err),
		)
	}
}
