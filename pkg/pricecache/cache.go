package pricecache

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Config holds the cache tuning knobs.
type Config struct {
	// MaxEntries caps the number of cached clients.
	MaxEntries int

	// TTL is the maximum entry age before a read treats it as stale.
	TTL time.Duration

	// EvictFraction is the share of entries removed per eviction pass.
	EvictFraction float64

	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:    200,
		TTL:           6 * time.Hour,
		EvictFraction: 0.2,
		SweepInterval: 1 * time.Hour,
	}
}

// Cache is the bounded TTL store of optimized price lists, keyed by client
// identifier. Construct it once at process start and hand it to the
// orchestrator and resolver; fresh instances give tests full isolation.
type Cache struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	stats   map[string]*AccessStats

	// now is the clock, swappable in tests.
	now func() time.Time
}

// New creates a cache. Zero or negative config fields fall back to defaults.
func New(cfg Config, logger zerolog.Logger) *Cache {
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.EvictFraction <= 0 || cfg.EvictFraction > 1 {
		cfg.EvictFraction = def.EvictFraction
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	return &Cache{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*Entry),
		stats:   make(map[string]*AccessStats),
		now:     time.Now,
	}
}

// Get returns the entry for clientID if present and within TTL. A stale entry
// is deleted on the spot (its stats record is kept) and reported as a miss.
// A hit increments the client's hit count and refreshes its last access time.
func (c *Cache) Get(clientID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[clientID]
	if !ok {
		cacheMisses.Inc()
		return Entry{}, false
	}

	now := c.now()
	if entry.expired(now, c.cfg.TTL) {
		c.removeEntryLocked(clientID)
		cacheExpired.Inc()
		cacheMisses.Inc()
		c.logger.Debug().
			Str("client_id", clientID).
			Time("stored_at", entry.StoredAt).
			Msg("Cache entry expired on read")
		return Entry{}, false
	}

	st := c.statsLocked(clientID)
	st.HitCount++
	st.LastAccessAt = now
	cacheHits.Inc()

	return *entry, true
}

// Set stores a payload under clientID, evicting the least useful entries
// first when the cache is at capacity. Existing entries are overwritten
// wholesale with a fresh StoredAt.
func (c *Cache) Set(clientID string, payload Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[clientID]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLocked()
	}

	now := c.now()
	entry := &Entry{
		ClientID:  clientID,
		Payload:   payload,
		StoredAt:  now,
		SizeBytes: approxSize(payload),
	}
	c.entries[clientID] = entry

	st := c.statsLocked(clientID)
	st.SetCount++
	st.LastAccessAt = now

	c.updateGaugesLocked()
	c.logger.Debug().
		Str("client_id", clientID).
		Int("total_products", payload.TotalProducts).
		Int("size_bytes", entry.SizeBytes).
		Msg("Cached price list")
}

// Delete removes the entry for clientID, leaving its stats untouched. It
// reports whether an entry existed.
func (c *Cache) Delete(clientID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[clientID]; !ok {
		return false
	}
	c.removeEntryLocked(clientID)
	return true
}

// Evict removes the bottom fraction of entries ranked by ascending
// (hit count, stored time) and returns how many were removed. Evicted clients
// lose their stats records as well.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

func (c *Cache) evictLocked() int {
	if len(c.entries) == 0 {
		return 0
	}

	type candidate struct {
		clientID string
		hits     int
		storedAt time.Time
	}

	candidates := make([]candidate, 0, len(c.entries))
	for id, entry := range c.entries {
		hits := 0
		if st, ok := c.stats[id]; ok {
			hits = st.HitCount
		}
		candidates = append(candidates, candidate{id, hits, entry.StoredAt})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].hits != candidates[j].hits {
			return candidates[i].hits < candidates[j].hits
		}
		return candidates[i].storedAt.Before(candidates[j].storedAt)
	})

	// Rounding up guarantees progress even with a single entry, so an insert
	// can never fail against the capacity bound.
	victims := int(math.Ceil(float64(len(candidates)) * c.cfg.EvictFraction))
	for _, cand := range candidates[:victims] {
		delete(c.entries, cand.clientID)
		delete(c.stats, cand.clientID)
	}

	cacheEvictions.Add(float64(victims))
	c.updateGaugesLocked()
	c.logger.Info().
		Int("evicted", victims).
		Int("remaining", len(c.entries)).
		Msg("Price cache eviction pass")

	return victims
}

// ActiveClient is one row of the stats report.
type ActiveClient struct {
	ClientID     string    `json:"clientId"`
	HitCount     int       `json:"hitCount"`
	LastAccessAt time.Time `json:"lastAccessAt"`
}

// Report is a point-in-time summary of cache occupancy and activity.
type Report struct {
	TotalEntries int            `json:"totalEntries"`
	TotalSizeKb  float64        `json:"totalSizeKb"`
	TopActive    []ActiveClient `json:"topActive"`
}

// Stats reports entry count, estimated size, and the five most-hit clients.
func (c *Cache) Stats() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalBytes := 0
	for _, entry := range c.entries {
		totalBytes += entry.SizeBytes
	}

	active := make([]ActiveClient, 0, len(c.stats))
	for id, st := range c.stats {
		active = append(active, ActiveClient{
			ClientID:     id,
			HitCount:     st.HitCount,
			LastAccessAt: st.LastAccessAt,
		})
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].HitCount != active[j].HitCount {
			return active[i].HitCount > active[j].HitCount
		}
		return active[i].ClientID < active[j].ClientID
	})
	if len(active) > 5 {
		active = active[:5]
	}

	return Report{
		TotalEntries: len(c.entries),
		TotalSizeKb:  math.Round(float64(totalBytes)/1024*100) / 100,
		TopActive:    active,
	}
}

// Run drives the periodic sweep until ctx is cancelled. The sweep purges
// expired entries and, when the cache is still at capacity afterwards, runs a
// capacity eviction pass. It supplements, not replaces, lazy per-read expiry.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	c.logger.Info().
		Dur("interval", c.cfg.SweepInterval).
		Msg("Price cache sweep started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Price cache sweep stopped")
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries and evicts when still at capacity.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	purged := 0
	for id, entry := range c.entries {
		if entry.expired(now, c.cfg.TTL) {
			c.removeEntryLocked(id)
			purged++
		}
	}
	if purged > 0 {
		cacheExpired.Add(float64(purged))
	}

	evicted := 0
	if len(c.entries) >= c.cfg.MaxEntries {
		evicted = c.evictLocked()
	}

	if purged > 0 || evicted > 0 {
		c.logger.Info().
			Int("purged_expired", purged).
			Int("evicted", evicted).
			Int("remaining", len(c.entries)).
			Msg("Price cache sweep")
	}
}

// removeEntryLocked deletes an entry but never its stats record.
func (c *Cache) removeEntryLocked(clientID string) {
	delete(c.entries, clientID)
	c.updateGaugesLocked()
}

// statsLocked returns the stats record for clientID, creating it on first use.
func (c *Cache) statsLocked(clientID string) *AccessStats {
	st, ok := c.stats[clientID]
	if !ok {
		st = &AccessStats{}
		c.stats[clientID] = st
	}
	return st
}

func (c *Cache) updateGaugesLocked() {
	cacheEntries.Set(float64(len(c.entries)))
	totalBytes := 0
	for _, entry := range c.entries {
		totalBytes += entry.SizeBytes
	}
	cacheSizeBytes.Set(float64(totalBytes))
}

// approxSize estimates the serialized payload size. Reporting only; a failed
// marshal yields zero rather than an error.
func approxSize(payload Payload) int {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	return len(data)
}
