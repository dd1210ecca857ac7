package cache

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RecentWindow is how far back an entry still counts as active.
const RecentWindow = time.Hour

// Snapshot is a point-in-time summary of the cache.
type Snapshot struct {
	Recent []string
	Total  int
	Active int
}

// Cache maps every generated render location to the time it was generated.
// It is persisted as a JSON object of epoch seconds after every mutation.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]float64
}

// Load reads the cache stored at path. A missing or unreadable file yields an
// empty cache.
func Load(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]float64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("cache file %s does not exist, starting empty", path)
		} else {
			log.Errorf("Failed to read cache file %s: %v", path, err)
		}
		return c
	}

	var entries map[string]float64
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Errorf("Failed to parse cache file %s: %v", path, err)
		return c
	}
	if entries != nil {
		c.entries = entries
	}

	log.Infof("Loaded %d cached generations from %s", len(c.entries), path)
	return c
}

// Record stores url with timestamp at and persists the cache. A failed write
// is logged and the in-memory entry is kept.
func (c *Cache) Record(url string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[url] = toEpoch(at)

	if err := c.save(); err != nil {
		log.Errorf("Failed to persist cache: %v", err)
	}
}

// Stats counts all entries and the ones newer than now minus RecentWindow.
func (c *Cache) Stats(now time.Time) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	threshold := toEpoch(now.Add(-RecentWindow))
	recent := make([]string, 0)
	for url, ts := range c.entries {
		if ts > threshold {
			recent = append(recent, url)
		}
	}
	sort.Strings(recent)

	return Snapshot{
		Recent: recent,
		Total:  len(c.entries),
		Active: len(recent),
	}
}

// Timestamps returns the generation time of every entry.
func (c *Cache) Timestamps() []time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]time.Time, 0, len(c.entries))
	for _, ts := range c.entries {
		out = append(out, fromEpoch(ts))
	}
	return out
}

// byURL returns a copy of the url to timestamp mapping.
func (c *Cache) byURL() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]time.Time, len(c.entries))
	for url, ts := range c.entries {
		out[url] = fromEpoch(ts)
	}
	return out
}

// save must be called with the write lock held.
func (c *Cache) save() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return errors.Wrap(err, "could not encode cache")
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "could not create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write cache")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close cache")
	}

	return errors.Wrapf(os.Rename(tmp.Name(), c.path), "could not replace %s", c.path)
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpoch(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
