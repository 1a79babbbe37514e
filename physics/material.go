package physics

import (
	"iter"
	"sort"
)

// ContactMaterial is the response used when two material tags touch.
type ContactMaterial struct {
	Restitution float64 `yaml:"restitution" json:"restitution"`
	Friction    float64 `yaml:"friction" json:"friction"`
}

// ContactEntry is one row of a ContactMaterialTable.
type ContactEntry struct {
	A, B     string
	Material ContactMaterial
}

type pairKey struct {
	a, b string
}

func makePairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// ContactMaterialTable maps unordered pairs of material tags to a contact response.
// A pair is stored once regardless of argument order.
type ContactMaterialTable struct {
	entries map[pairKey]ContactMaterial
}

func NewContactMaterialTable() *ContactMaterialTable {
	return &ContactMaterialTable{entries: make(map[pairKey]ContactMaterial)}
}

// Set inserts or replaces the entry for the pair {a, b}.
func (t *ContactMaterialTable) Set(a, b string, m ContactMaterial) {
	t.entries[makePairKey(a, b)] = m
}

// Get returns the entry for the pair {a, b}.
func (t *ContactMaterialTable) Get(a, b string) (ContactMaterial, bool) {
	m, ok := t.entries[makePairKey(a, b)]
	return m, ok
}

// Remove deletes the entry for the pair {a, b} and reports whether one existed.
func (t *ContactMaterialTable) Remove(a, b string) bool {
	key := makePairKey(a, b)
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// RemoveTag deletes every entry that references tag and returns how many were removed.
func (t *ContactMaterialTable) RemoveTag(tag string) int {
	removed := 0
	for key := range t.entries {
		if key.a == tag || key.b == tag {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// CountTag returns how many entries reference tag.
func (t *ContactMaterialTable) CountTag(tag string) int {
	n := 0
	for key := range t.entries {
		if key.a == tag || key.b == tag {
			n++
		}
	}
	return n
}

func (t *ContactMaterialTable) Len() int { return len(t.entries) }

// Entries returns every entry sorted by pair.
func (t *ContactMaterialTable) Entries() []ContactEntry {
	out := make([]ContactEntry, 0, len(t.entries))
	for key, m := range t.entries {
		out = append(out, ContactEntry{A: key.a, B: key.b, Material: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// All iterates the entries in sorted order.
func (t *ContactMaterialTable) All() iter.Seq[ContactEntry] {
	return func(yield func(ContactEntry) bool) {
		for _, e := range t.Entries() {
			if !yield(e) {
				return
			}
		}
	}
}
