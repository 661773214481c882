package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errNotInitialized = errors.New("ledger is not initialized")

type MemoryLedger struct {
	mu       sync.RWMutex
	episodes []Episode
	ready    bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Init(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ready = true
	return nil
}

func (l *MemoryLedger) Record(_ context.Context, ep Episode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return errNotInitialized
	}
	l.episodes = append(l.episodes, ep)
	return nil
}

func (l *MemoryLedger) Episodes(_ context.Context, sessionID string) ([]Episode, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.ready {
		return nil, errNotInitialized
	}
	out := make([]Episode, 0, len(l.episodes))
	for _, ep := range l.episodes {
		if sessionID == "" || ep.SessionID == sessionID {
			out = append(out, ep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SessionID != out[j].SessionID {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (l *MemoryLedger) Close() error { return nil }
