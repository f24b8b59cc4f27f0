package enhance

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

var tagRegex = regexp.MustCompile(`<[^>]+>`)

// NormalizePhrase derives the cache key: markup stripped, surrounding
// whitespace trimmed, NFC. Case is preserved.
func NormalizePhrase(text string) string {
	text = tagRegex.ReplaceAllString(text, "")
	return norm.NFC.String(strings.TrimSpace(text))
}

// PhraseCache maps normalized phrases to annotations. It is safe for
// concurrent use.
type PhraseCache struct {
	mu      sync.RWMutex
	entries map[string]Annotation
}

func NewPhraseCache() *PhraseCache {
	return &PhraseCache{entries: make(map[string]Annotation)}
}

func (c *PhraseCache) Get(phrase string) (Annotation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[NormalizePhrase(phrase)]
	return a, ok
}

func (c *PhraseCache) Put(phrase string, a Annotation) {
	key := NormalizePhrase(phrase)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = a
}

func (c *PhraseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Seed loads previously stored annotations without overwriting live entries
func (c *PhraseCache) Seed(entries map[string]Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for phrase, a := range entries {
		key := NormalizePhrase(phrase)
		if key == "" {
			continue
		}
		if _, ok := c.entries[key]; !ok {
			c.entries[key] = a
		}
	}
}

// Snapshot returns a copy of all entries
func (c *PhraseCache) Snapshot() map[string]Annotation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Annotation, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Phrases returns the cached keys in sorted order
func (c *PhraseCache) Phrases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
