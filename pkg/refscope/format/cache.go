package format

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrCacheProtocol is reported when a key is locked without an open
// recording.
var ErrCacheProtocol = errors.New("format: cache lock without open entry")

// Cache records output spans by key so repeated subtrees are replayed
// instead of re-rendered. Positions are renderer cursors: byte offsets for
// HTML, event indices for the recorder.
type Cache struct {
	spans  map[string]*span
	open   map[string]*span
	hits   int
	misses int
	logger *slog.Logger
}

type span struct {
	start  int
	length int
	level  int
	// deepest group level reached inside the span, relative to level
	peak int
	// a group inside the span was refused at the depth limit
	cut    bool
	locked bool
}

func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		spans:  make(map[string]*span),
		open:   make(map[string]*span),
		logger: logger,
	}
}

// Lookup returns the recorded span for key. A locked span is only replayed
// when its nesting still fits under maxDepth at the current level, and a
// cut span only at the level it was recorded at; any other lookup
// (re)opens a recording at cursor.
func (c *Cache) Lookup(key string, cursor, level, maxDepth int) (start, length int, hit bool) {
	s, ok := c.spans[key]
	if ok && s.locked && s.fits(level, maxDepth) {
		c.hits++
		return s.start, s.length, true
	}
	if !ok {
		s = &span{}
		c.spans[key] = s
	}
	s.start, s.level, s.peak, s.cut, s.locked = cursor, level, 0, false, false
	c.open[key] = s
	c.misses++
	return 0, 0, false
}

// Observe records that a group was opened at level.
func (c *Cache) Observe(level int) {
	for _, s := range c.open {
		if d := level - s.level; d > s.peak {
			s.peak = d
		}
	}
}

func (s *span) fits(level, maxDepth int) bool {
	if maxDepth <= 0 {
		return true
	}
	if s.cut && level < s.level {
		return false
	}
	return level+s.peak <= maxDepth
}

// Cut records that a group was refused at the depth limit.
func (c *Cache) Cut() {
	for _, s := range c.open {
		s.cut = true
	}
}

// Lock closes the recording for key at cursor.
func (c *Cache) Lock(key string, cursor int) error {
	s, ok := c.open[key]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrCacheProtocol, key)
		c.logger.Error("cache protocol violation", "key", key, "error", err)
		if strictCache {
			panic(err)
		}
		return err
	}
	delete(c.open, key)
	s.length = cursor - s.start
	s.locked = true
	return nil
}

func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}

func (c *Cache) Reset() {
	clear(c.spans)
	clear(c.open)
	c.hits, c.misses = 0, 0
}
