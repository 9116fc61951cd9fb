package utils

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// APIKeyPool rotates Gemini API keys, temporarily blacklisting keys that
// fail so a quota-exhausted key does not keep absorbing requests.
type APIKeyPool struct {
	keys        []string
	usageCounts map[string]int
	blacklist   map[string]time.Time
	mu          sync.Mutex
}

// NewAPIKeyPool creates a pool. Returns nil for an empty key list; callers
// must then rely on per-request keys.
func NewAPIKeyPool(keys []string) *APIKeyPool {
	if len(keys) == 0 {
		return nil
	}
	return &APIKeyPool{
		keys:        keys,
		usageCounts: make(map[string]int),
		blacklist:   make(map[string]time.Time),
	}
}

// Get returns the least-used available key, breaking ties randomly.
func (p *APIKeyPool) Get() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	available := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		if expiry, banned := p.blacklist[key]; banned {
			if now.Before(expiry) {
				continue
			}
			delete(p.blacklist, key)
		}
		available = append(available, key)
	}
	if len(available) == 0 {
		return "", errors.New("no available API keys")
	}

	minUsage := -1
	for _, key := range available {
		if c := p.usageCounts[key]; minUsage == -1 || c < minUsage {
			minUsage = c
		}
	}
	candidates := make([]string, 0, len(available))
	for _, key := range available {
		if p.usageCounts[key] == minUsage {
			candidates = append(candidates, key)
		}
	}

	selected := candidates[rand.Intn(len(candidates))]
	p.usageCounts[selected]++
	return selected, nil
}

// MarkFailed blacklists a key until retryAfter elapses.
func (p *APIKeyPool) MarkFailed(key string, retryAfter time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklist[key] = time.Now().Add(retryAfter)
}

// Size reports how many keys the pool holds in total.
func (p *APIKeyPool) Size() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
