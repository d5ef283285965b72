// Package enrich looks up company names when the overview page has none.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	yfgo "github.com/komsit37/yf-go"
)

// TitleService resolves a symbol to a display name.
type TitleService interface {
	Title(ctx context.Context, sym string) (string, error)
}

// YFService implements TitleService using yf-go.
type YFService struct {
	client  *yfgo.Client
	timeout time.Duration
}

func NewYFService(timeout time.Duration) *YFService {
	return &YFService{client: yfgo.NewClient(), timeout: timeout}
}

func (s *YFService) Title(ctx context.Context, sym string) (string, error) {
	if sym == "" {
		return "", nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.client.QuoteSummaryTyped(cctx, sym, []yfgo.QuoteSummaryModule{yfgo.ModulePrice})
	if err != nil {
		return "", err
	}
	if res.Price == nil {
		return "", fmt.Errorf("no price module for %s", sym)
	}
	if res.Price.ShortName != "" {
		return res.Price.ShortName, nil
	}
	if res.Price.LongName != "" {
		return res.Price.LongName, nil
	}
	return "", fmt.Errorf("no name for %s", sym)
}

// CacheService decorates a TitleService with TTL+LRU cache.
type CacheService struct {
	next TitleService
	ttl  time.Duration
	size int
	now  func() time.Time

	mu    sync.Mutex
	items map[string]cacheEntry
	order []string // simple LRU order, oldest at index 0
}

type cacheEntry struct {
	at    time.Time
	title string
}

func NewCacheService(next TitleService, ttl time.Duration, size int) *CacheService {
	return &CacheService{next: next, ttl: ttl, size: size, now: time.Now, items: make(map[string]cacheEntry)}
}

func (c *CacheService) Title(ctx context.Context, sym string) (string, error) {
	if sym == "" {
		return "", nil
	}
	now := c.now()
	c.mu.Lock()
	if ent, ok := c.items[sym]; ok {
		if now.Sub(ent.at) <= c.ttl {
			c.touchLocked(sym)
			t := ent.title
			c.mu.Unlock()
			return t, nil
		}
		// expired
		delete(c.items, sym)
		c.removeFromOrderLocked(sym)
	}
	c.mu.Unlock()

	t, err := c.next.Title(ctx, sym)
	if err != nil {
		return t, err
	}
	c.mu.Lock()
	c.items[sym] = cacheEntry{at: now, title: t}
	c.order = append(c.order, sym)
	for len(c.items) > c.size && len(c.order) > 0 {
		old := c.order[0]
		c.order = c.order[1:]
		delete(c.items, old)
	}
	c.mu.Unlock()
	return t, nil
}

func (c *CacheService) touchLocked(k string) {
	// move key to end
	for i, v := range c.order {
		if v == k {
			c.order = append(append(c.order[:i], c.order[i+1:]...), k)
			return
		}
	}
	c.order = append(c.order, k)
}

func (c *CacheService) removeFromOrderLocked(k string) {
	for i, v := range c.order {
		if v == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
