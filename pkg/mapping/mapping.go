package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrCollision is returned when two local fields map onto the same directory
// attribute, which would make the reverse translation ambiguous.
var ErrCollision = errors.New("attribute mapping collision")

// Pair is one local field / directory attribute correspondence.
type Pair struct {
	Local     string
	Directory string
}

// AttributeMap is a bidirectional dictionary between local field names and
// directory attribute names. Names absent from the map translate to
// themselves. A nil *AttributeMap is the identity map.
type AttributeMap struct {
	pairs       []Pair
	toDirectory map[string]string
	toLocal     map[string]string
}

// New builds an AttributeMap from local field -> directory attribute entries.
// Directory attribute names are compared case-insensitively.
func New(localToDirectory map[string]string) (*AttributeMap, error) {
	m := &AttributeMap{
		pairs:       make([]Pair, 0, len(localToDirectory)),
		toDirectory: make(map[string]string, len(localToDirectory)),
		toLocal:     make(map[string]string, len(localToDirectory)),
	}

	for local, dir := range localToDirectory {
		if local == "" || dir == "" {
			return nil, fmt.Errorf("attribute mapping %q -> %q: names must not be empty", local, dir)
		}
		key := strings.ToLower(dir)
		if other, ok := m.toLocal[key]; ok {
			first, second := other, local
			if second < first {
				first, second = second, first
			}
			return nil, fmt.Errorf("%w: fields %q and %q both map to %q", ErrCollision, first, second, dir)
		}
		m.toDirectory[local] = dir
		m.toLocal[key] = local
		m.pairs = append(m.pairs, Pair{Local: local, Directory: dir})
	}

	sort.Slice(m.pairs, func(i, j int) bool { return m.pairs[i].Local < m.pairs[j].Local })
	return m, nil
}

// Empty returns the identity map.
func Empty() *AttributeMap {
	m, _ := New(nil)
	return m
}

// Pairs returns the mapped entries ordered by local field name.
func (m *AttributeMap) Pairs() []Pair {
	if m == nil {
		return nil
	}
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// Len returns the number of mapped fields.
func (m *AttributeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// DirectoryName translates a local field name.
func (m *AttributeMap) DirectoryName(local string) string {
	if m == nil {
		return local
	}
	if dir, ok := m.toDirectory[local]; ok {
		return dir
	}
	return local
}

// LocalName translates a directory attribute name.
func (m *AttributeMap) LocalName(dir string) string {
	if m == nil {
		return dir
	}
	if local, ok := m.toLocal[strings.ToLower(dir)]; ok {
		return local
	}
	return dir
}

// ToDirectory translates the keys of local params to directory attribute names.
// When a mapped key and a pass-through key translate to the same name, the
// mapped key wins.
func (m *AttributeMap) ToDirectory(local map[string]any) map[string]any {
	return translate(local, m.DirectoryName, func(k string) bool {
		return m != nil && m.toDirectory[k] != ""
	})
}

// ToLocal translates the keys of directory attributes to local field names.
// When a mapped key and a pass-through key translate to the same name, the
// mapped key wins.
func (m *AttributeMap) ToLocal(dir map[string]any) map[string]any {
	return translate(dir, m.LocalName, func(k string) bool {
		return m != nil && m.toLocal[strings.ToLower(k)] != ""
	})
}

func translate(in map[string]any, name func(string) string, mapped func(string) bool) map[string]any {
	out := make(map[string]any, len(in))
	fromMapped := make(map[string]bool, len(in))
	for k, v := range in {
		translated := name(k)
		isMapped := mapped(k)
		if _, taken := out[translated]; taken && fromMapped[translated] && !isMapped {
			continue
		}
		out[translated] = v
		fromMapped[translated] = isMapped
	}
	return out
}

// Set is the process-wide mapping-of-mappings keyed by model name.
// Each model's AttributeMap is built on first use and cached. Concurrent first
// use may build the map twice; the result is identical so either copy is kept.
type Set struct {
	raw   map[string]map[string]string
	cache sync.Map
}

// NewSet creates a Set from model name -> (local field -> directory attribute).
func NewSet(raw map[string]map[string]string) *Set {
	copied := make(map[string]map[string]string, len(raw))
	for model, fields := range raw {
		inner := make(map[string]string, len(fields))
		for k, v := range fields {
			inner[k] = v
		}
		copied[model] = inner
	}
	return &Set{raw: copied}
}

// For returns the AttributeMap of model. A model without configuration gets
// the identity map.
func (s *Set) For(model string) (*AttributeMap, error) {
	if cached, ok := s.cache.Load(model); ok {
		return cached.(*AttributeMap), nil
	}

	m, err := New(s.raw[model])
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", model, err)
	}
	actual, _ := s.cache.LoadOrStore(model, m)
	return actual.(*AttributeMap), nil
}

// Configured reports whether model has a mapping entry.
func (s *Set) Configured(model string) bool {
	_, ok := s.raw[model]
	return ok
}

// Validate builds every configured map, reporting the first collision.
func (s *Set) Validate() error {
	models := make([]string, 0, len(s.raw))
	for model := range s.raw {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		if _, err := s.For(model); err != nil {
			return err
		}
	}
	return nil
}
