package normalizer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/singleflight"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// TermStore persists resolved readings across runs.
type TermStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, surface, reading string) error
}

// Extractor proposes surface-form -> reading pairs for proper nouns found
// in a text, typically backed by a language model.
type Extractor interface {
	ExtractReadings(ctx context.Context, text string) (map[string]string, error)
}

// Lookup corroborates a proposed reading against an authoritative source.
type Lookup interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Stats reports dictionary sizes for operational logging.
type Stats struct {
	CachedWrestlers int
	Static          int
	Total           int
}

// Normalizer rewrites narration text into a phonetically unambiguous form
// before speech synthesis: known terms and wrestler names are replaced by
// their readings (longest surface form first), then numeral+unit patterns
// are spelled out.
//
// The wrestler cache is append-only during a run and persisted through the
// TermStore; concurrent jobs may race on writes (last write wins).
type Normalizer struct {
	dict      Dictionary
	extractor Extractor
	lookup    Lookup
	store     TermStore

	mu    sync.RWMutex
	cache map[string]string

	sf singleflight.Group
}

func New(extractor Extractor, lookup Lookup, store TermStore) *Normalizer {
	n := &Normalizer{
		dict:      loadDictionary(),
		extractor: extractor,
		lookup:    lookup,
		store:     store,
		cache:     make(map[string]string),
	}

	if store != nil {
		cached, err := store.Load(context.Background())
		if err != nil {
			log.Warn("Failed to load reading cache, starting empty: %v", err)
		} else {
			n.cache = cached
		}
	}
	return n
}

// Normalize rewrites the text for speech synthesis. Extraction and lookup
// failures are swallowed: the text is still normalized against whatever the
// dictionary and cache already hold.
func (n *Normalizer) Normalize(ctx context.Context, text string) string {
	n.refreshReadings(ctx, text)

	entries := make(map[string]string, n.dict.size())
	n.dict.merge(entries)
	n.mu.RLock()
	for k, v := range n.cache {
		entries[k] = v
	}
	n.mu.RUnlock()

	normalized := replaceLongestFirst(text, entries)
	return normalizeNumbers(normalized)
}

// NormalizeWithLog behaves like Normalize and logs before/after when the
// text changed.
func (n *Normalizer) NormalizeWithLog(ctx context.Context, text string) string {
	normalized := n.Normalize(ctx, text)
	if normalized != text {
		log.Info("Text normalized:\n  before: %s\n  after:  %s", text, normalized)
	}
	return normalized
}

// DictionaryStats returns entry counts for the static dictionary and the
// dynamic wrestler cache.
func (n *Normalizer) DictionaryStats() Stats {
	n.mu.RLock()
	cached := len(n.cache)
	n.mu.RUnlock()
	static := n.dict.size()
	return Stats{
		CachedWrestlers: cached,
		Static:          static,
		Total:           cached + static,
	}
}

// AddReading inserts one reading into the cache and persists it.
func (n *Normalizer) AddReading(ctx context.Context, surface, reading string) {
	n.mu.Lock()
	n.cache[surface] = reading
	n.mu.Unlock()

	if n.store != nil {
		if err := n.store.Upsert(ctx, surface, reading); err != nil {
			log.Warn("Failed to persist reading %s -> %s: %v", surface, reading, err)
		}
	}
}

// refreshReadings extracts proper nouns from the text and resolves readings
// for any that are not cached yet. Best-effort throughout.
func (n *Normalizer) refreshReadings(ctx context.Context, text string) {
	if n.extractor == nil {
		return
	}

	// Reading extraction only applies to Japanese text.
	if info := whatlanggo.Detect(text); info.Lang != whatlanggo.Jpn {
		log.Debug("Skipping reading extraction for non-Japanese text (%s)", whatlanggo.LangToString(info.Lang))
		return
	}

	proposed, err := n.extractor.ExtractReadings(ctx, text)
	if err != nil {
		log.Warn("Reading extraction failed: %v", err)
		return
	}

	for surface, aiReading := range proposed {
		if surface == "" || aiReading == "" {
			continue
		}

		n.mu.RLock()
		_, cached := n.cache[surface]
		n.mu.RUnlock()
		if cached {
			continue
		}

		reading := n.resolveReading(ctx, surface, aiReading)
		n.AddReading(ctx, surface, reading)
	}
}

// resolveReading corroborates the model-proposed reading with the official
// lookup, deduplicating concurrent lookups for the same surface form.
func (n *Normalizer) resolveReading(ctx context.Context, surface, aiReading string) string {
	if n.lookup == nil {
		return aiReading
	}

	v, _, _ := n.sf.Do(surface, func() (interface{}, error) {
		official, err := n.lookup.Lookup(ctx, surface)
		if err != nil || official == "" {
			log.Info("No official reading for %s, using model reading %s", surface, aiReading)
			return aiReading, nil
		}
		return official, nil
	})
	return v.(string)
}

// replaceLongestFirst applies every dictionary entry to the text, longest
// surface form first so a short key never corrupts a longer match.
func replaceLongestFirst(text string, entries map[string]string) string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		if k != "" && entries[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := len([]rune(keys[i])), len([]rune(keys[j]))
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		text = strings.ReplaceAll(text, k, entries[k])
	}
	return text
}
