package chess

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrWriterClaimed = errors.New("chess: catalog writer already claimed")
	ErrDuplicateBot  = errors.New("chess: bot already registered")
)

// Catalog is an append-only registry of bot profiles. Reads are open to
// everyone; appends go through the single CatalogWriter.
type Catalog struct {
	mu       sync.RWMutex
	profiles []BotProfile
	byID     map[string]int

	claimed atomic.Bool
}

func NewCatalog(presets []BotProfile) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(presets))}
	for _, p := range presets {
		if err := c.append(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) Lookup(id string) (BotProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return BotProfile{}, false
	}
	return c.profiles[idx].clone(), true
}

func (c *Catalog) List() []BotProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]BotProfile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p.clone())
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

// ClaimWriter hands out the only writer. Later calls fail with ErrWriterClaimed.
func (c *Catalog) ClaimWriter() (*CatalogWriter, error) {
	if !c.claimed.CompareAndSwap(false, true) {
		return nil, ErrWriterClaimed
	}
	return &CatalogWriter{catalog: c}, nil
}

func (c *Catalog) append(p BotProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.byID[p.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateBot, p.ID)
	}
	c.byID[p.ID] = len(c.profiles)
	c.profiles = append(c.profiles, p.clone())
	return nil
}

type CatalogWriter struct {
	catalog *Catalog
}

func (w *CatalogWriter) Append(p BotProfile) error {
	return w.catalog.append(p)
}
