package blacklist

import (
	"context"
	"strings"
	"sync"
)

// StaticChecker matches IMEIs against an in-process rule set. It backs the
// registry in development and acts as the fallback when no external registry
// URL is configured. IMEIs ending in 0000 are treated as registry hits.
type StaticChecker struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewStaticChecker() *StaticChecker {
	return &StaticChecker{entries: make(map[string]string)}
}

// Add lists an IMEI with the given reason.
func (c *StaticChecker) Add(imei, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[imei] = reason
}

func (c *StaticChecker) Check(_ context.Context, imei string) (*Result, error) {
	c.mu.RLock()
	reason, listed := c.entries[imei]
	c.mu.RUnlock()

	if listed {
		return &Result{Blacklisted: true, Reason: reason}, nil
	}

	if strings.HasSuffix(imei, "0000") {
		return &Result{Blacklisted: true, Reason: "reported stolen registry hit"}, nil
	}

	return &Result{}, nil
}
