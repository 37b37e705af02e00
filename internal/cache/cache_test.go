package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/clausewise/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("model", "gpt-4o-mini", "The Supplier shall deliver.")
	b := Key("model", "gpt-4o-mini", "The Supplier shall deliver.")
	c := Key("model", "gpt-4o-mini", "The Supplier may deliver.")

	assert.True(t, strings.HasPrefix(a, "clausewise:v1:"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"), "parts are delimited")
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(model.CacheConfig{Enabled: false}))

	_, isMemory := New(model.CacheConfig{Enabled: true}).(*MemoryCache)
	assert.True(t, isMemory)

	_, isLayered := New(model.CacheConfig{Enabled: true, Dir: t.TempDir()}).(*LayeredCache)
	assert.True(t, isLayered)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)
	key := Key("x")

	require.NoError(t, c.Set(key, []byte("fresh"), 0))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), got)

	require.NoError(t, c.Set(key, []byte("stale"), -time.Second))
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	key := Key("clause")

	require.NoError(t, NewDiskCache(dir, time.Hour).Set(key, []byte("obligation"), 0))

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("obligation"), got)

	got, ok = c.memory.Get(key)
	require.True(t, ok, "disk hit is promoted to memory")
	assert.Equal(t, []byte("obligation"), got)

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting a missing key is not an error")
	require.NoError(t, c.Clear())
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	buf := []byte(`{"type": "right"}`)
	require.NoError(t, c.Set("k", buf, 0))
	buf[2] = 'X'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"type": "right"}`, string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
}

func TestDiskCache_Layout(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("classify", "openai", "The Licensee shall pay.")

	require.NoError(t, c.Set(key, []byte("payment"), 0))

	name := strings.TrimPrefix(key, keyPrefix)
	assert.FileExists(t, filepath.Join(dir, name[:2], name+".json"))

	entries, err := os.ReadDir(filepath.Join(dir, name[:2]))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed into place")
}

func TestDiskCache_ClockExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewDiskCache(t.TempDir(), time.Hour)
	c.now = func() time.Time { return now }

	key := Key("risk", "ollama", "unlimited liability")
	require.NoError(t, c.Set(key, []byte(`{"label": "High Risk"}`), 0))

	now = now.Add(59 * time.Minute)
	_, ok := c.Get(key)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok)
	assert.NoFileExists(t, c.path(key), "expired entries are removed on read")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("x")
	require.NoError(t, os.MkdirAll(filepath.Dir(c.path(key)), 0o755))
	require.NoError(t, os.WriteFile(c.path(key), []byte("not json"), 0o600))

	_, ok := c.Get(key)
	assert.False(t, ok)
	assert.NoFileExists(t, c.path(key))
}

func TestDiskCache_ClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, c.Set(Key("a"), []byte("1"), 0))
	require.NoError(t, c.Set(Key("b"), []byte("2"), 0))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("keep"), 0o600))

	require.NoError(t, c.Clear())

	_, ok := c.Get(Key("a"))
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(dir, "README"))

	assert.NoError(t, NewDiskCache(filepath.Join(dir, "missing"), time.Hour).Clear())
}
