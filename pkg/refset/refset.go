// Package refset canonicalizes heterogeneous product and category
// references into flat identifier sets.
//
// Upstream services populate relations inconsistently: the same field may
// arrive as a bare identifier, as an object carrying the identifier under
// one of several keys, or as a collection mixing both. All matching logic
// works on the canonical Set produced here instead of dispatching on
// shapes ad hoc.
package refset

import (
	"sort"
)

// DefaultIDKeys is the identifier-key table used when no explicit table is
// supplied. The order matters: for an object carrying several known keys,
// the first key in the table wins.
var DefaultIDKeys = []string{"id", "_id", "uid"}

// Set is a flat, unordered collection of reference identifiers.
type Set map[string]struct{}

// NewSet builds a Set from the given identifiers. Empty identifiers are
// dropped.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier into the set. Empty identifiers are ignored.
func (s Set) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has reports whether the set contains the given identifier.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Empty reports whether the set contains no identifiers.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Intersects reports whether the two sets share at least one identifier.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// IDs returns the identifiers in lexicographic order. Ordering keeps
// responses and tests deterministic.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalizer converts loosely shaped references into Sets using an
// explicit identifier-key table supplied at construction.
type Normalizer struct {
	keys []string
}

// NewNormalizer returns a Normalizer using the given identifier-key table.
// A nil or empty table falls back to DefaultIDKeys.
func NewNormalizer(keys []string) *Normalizer {
	if len(keys) == 0 {
		keys = DefaultIDKeys
	}
	return &Normalizer{keys: keys}
}

// Normalize converts a reference of any supported shape into a Set.
//
// It is total: a nil reference yields the empty set, an object without a
// usable identifier contributes nothing, and collections are normalized
// element-wise with set-union semantics. Absence of a usable identifier is
// always represented by exclusion, never by an error.
func (n *Normalizer) Normalize(ref any) Set {
	out := Set{}
	n.collect(out, ref)
	return out
}

func (n *Normalizer) collect(out Set, ref any) {
	switch v := ref.(type) {
	case nil:
	case string:
		out.Add(v)
	case Ref:
		for _, id := range v.ids {
			out.Add(id)
		}
	case *Ref:
		if v != nil {
			n.collect(out, *v)
		}
	case map[string]any:
		if id, ok := n.objectID(v); ok {
			out.Add(id)
		}
	case map[string]string:
		for _, key := range n.keys {
			if id, ok := v[key]; ok && id != "" {
				out.Add(id)
				return
			}
		}
	case []string:
		for _, id := range v {
			out.Add(id)
		}
	case []any:
		for _, elem := range v {
			n.collect(out, elem)
		}
	}
	// Anything else carries no usable identifier and is excluded.
}

// objectID extracts the identifier from an object-shaped reference.
// The key table order decides which key wins when several are present.
func (n *Normalizer) objectID(obj map[string]any) (string, bool) {
	for _, key := range n.keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if id, ok := scalarID(raw); ok {
			return id, true
		}
	}
	return "", false
}

func scalarID(v any) (string, bool) {
	if s, ok := v.(string); ok && s != "" {
		return s, true
	}
	return "", false
}
