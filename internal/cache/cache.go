package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

var _ Cache[int] = (*LRUCache[int])(nil)

// Sweeper periodically removes expired entries from registered caches.
type Sweeper struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    context.CancelFunc
	stopped chan struct{}
}

func NewSweeper() *Sweeper {
	return &Sweeper{}
}

// Register adds a cache to be swept.
func (s *Sweeper) Register(c Cleaner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = append(s.caches, c)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (s *Sweeper) Sweep() int {
	s.mu.Lock()
	caches := append([]Cleaner(nil), s.caches...)
	s.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Start sweeps every interval until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = cancel
	s.stopped = make(chan struct{})
	done := s.stopped
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					slog.Debug("Cache sweep completed", "entries_removed", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit. Safe to call when not started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.stopped
	s.stop = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}
