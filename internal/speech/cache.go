package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

// DefaultCacheEntries bounds the in-memory tier.
const DefaultCacheEntries = 256

// Cache keeps synthesized audio in memory and, optionally, on disk. Keys
// hash the voice with the text, so switching voices never replays the
// old one.
//
// The disk tier is always read when a directory is set; persist only
// controls whether new audio is written there.
type Cache struct {
	voice   string
	dir     string
	persist bool
	max     int
	log     *logger.Logger

	mu      sync.Mutex
	entries map[string][]byte
	order   []string // insertion order, oldest first
	hits    int64
	misses  int64
}

// NewCache creates an audio cache. An empty dir disables the disk tier.
func NewCache(voice, dir string, persist bool, log *logger.Logger) *Cache {
	c := &Cache{
		voice:   voice,
		dir:     dir,
		persist: persist,
		max:     DefaultCacheEntries,
		log:     log,
		entries: make(map[string][]byte),
	}
	if dir != "" && persist {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("tts cache: create %s: %v", dir, err)
			c.persist = false
		}
	}
	return c
}

// Get returns the audio cached for text.
func (c *Cache) Get(text string) ([]byte, bool) {
	key := c.key(text)

	c.mu.Lock()
	if audio, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return audio, true
	}
	c.mu.Unlock()

	if c.dir != "" {
		if audio, err := os.ReadFile(c.path(key)); err == nil {
			c.mu.Lock()
			c.storeLocked(key, audio)
			c.hits++
			c.mu.Unlock()
			c.log.Debug("tts cache: disk hit %s", key[:12])
			return audio, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio for text.
func (c *Cache) Put(text string, audio []byte) {
	key := c.key(text)

	c.mu.Lock()
	c.storeLocked(key, audio)
	c.mu.Unlock()

	if c.dir == "" || !c.persist {
		return
	}
	if err := os.WriteFile(c.path(key), audio, 0o644); err != nil {
		c.log.Warn("tts cache: write %s: %v", key[:12], err)
	}
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) storeLocked(key string, audio []byte) {
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = audio
	for len(c.order) > c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.voice + ":" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".wav")
}
