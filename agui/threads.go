package agui

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spetersoncode/relay/agent"
)

// Factory creates the agent serving a new thread.
type Factory func(threadID string) (*agent.Agent, error)

type thread struct {
	agent    *agent.Agent
	lastUsed time.Time
}

// Threads keeps one agent per AG-UI thread, so each thread has its own
// conversation and turns on a thread never overlap.
type Threads struct {
	mu      sync.Mutex
	threads map[string]*thread
	factory Factory
	logger  *slog.Logger
	now     func() time.Time
}

// NewThreads creates an empty thread pool. A nil logger uses slog.Default.
func NewThreads(factory Factory, logger *slog.Logger) *Threads {
	if logger == nil {
		logger = slog.Default()
	}
	return &Threads{
		threads: make(map[string]*thread),
		factory: factory,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the agent for threadID, creating it on first use.
func (t *Threads) Get(threadID string) (*agent.Agent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if th, ok := t.threads[threadID]; ok {
		th.lastUsed = t.now()
		return th.agent, nil
	}

	a, err := t.factory(threadID)
	if err != nil {
		return nil, err
	}
	t.threads[threadID] = &thread{agent: a, lastUsed: t.now()}
	t.logger.Debug("thread created", "thread_id", threadID)
	return a, nil
}

// Lookup returns the agent for threadID without creating one.
func (t *Threads) Lookup(threadID string) (*agent.Agent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	th, ok := t.threads[threadID]
	if !ok {
		return nil, false
	}
	return th.agent, true
}

// Len returns the number of live threads.
func (t *Threads) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.threads)
}

// Evict closes and forgets threads unused for longer than idle.
// It returns the number of threads evicted.
func (t *Threads) Evict(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	evicted := 0
	for id, th := range t.threads {
		if th.lastUsed.After(cutoff) {
			continue
		}
		if err := th.agent.Close(); err != nil {
			t.logger.Warn("closing idle thread", "thread_id", id, "error", err)
		}
		delete(t.threads, id)
		evicted++
	}
	return evicted
}

// Close closes every thread's agent.
func (t *Threads) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for id, th := range t.threads {
		errs = append(errs, th.agent.Close())
		delete(t.threads, id)
	}
	return errors.Join(errs...)
}
