package speech

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/cookmode/internal/logger"
)

func TestCacheMemory(t *testing.T) {
	c := NewCache("ava", "", false, logger.New(logger.LevelOff, nil))

	_, ok := c.Get("hello")
	assert.False(t, ok)

	c.Put("hello", []byte("audio"))
	got, ok := c.Get("hello")
	require.True(t, ok)
	assert.Equal(t, "audio", string(got))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCacheKeysIncludeVoice(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)
	NewCache("ava", dir, true, log).Put("hello", []byte("ava audio"))

	_, ok := NewCache("sonia", dir, true, log).Get("hello")
	assert.False(t, ok)

	got, ok := NewCache("ava", dir, true, log).Get("hello")
	require.True(t, ok, "a fresh cache reads what an earlier run persisted")
	assert.Equal(t, "ava audio", string(got))
}

func TestCacheReadOnlyDisk(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)

	c := NewCache("ava", dir, false, log)
	c.Put("hello", []byte("audio"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache("ava", "", false, logger.New(logger.LevelOff, nil))
	c.max = 2

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("line %d", i), []byte{byte(i)})
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("line 0")
	assert.False(t, ok)
	_, ok = c.Get("line 2")
	assert.True(t, ok)
}
