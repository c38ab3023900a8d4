package mongrel2

import "strings"

// Header is a single named header entry, preserving every value it was set
// or appended with.
type Header struct {
	Name   string
	Values []string
}

// FirstValue returns the first value of the h. It returns "" if the h is nil
// or has no values.
func (h *Header) FirstValue() string {
	if h == nil || len(h.Values) == 0 {
		return ""
	}

	return h.Values[0]
}

// Headers is an ordered, case-insensitive header map. Insertion order is
// preserved so that serialisation (the `Response` status/header block, the
// `Envelope.Headers` as delivered) matches the order the headers were set in.
type Headers struct {
	entries []Header
	index   map[string]int
}

// NewHeaders returns an empty instance of `Headers`.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// Get returns the values associated with the key. The key is case
// insensitive.
func (hs *Headers) Get(key string) []string {
	if hs == nil {
		return nil
	}

	if i, ok := hs.index[strings.ToLower(key)]; ok {
		return hs.entries[i].Values
	}

	return nil
}

// First returns the first value associated with the key, or "" if there is
// none.
func (hs *Headers) First(key string) string {
	if vs := hs.Get(key); len(vs) > 0 {
		return vs[0]
	}

	return ""
}

// Has reports whether the key has at least one value set.
func (hs *Headers) Has(key string) bool {
	_, ok := hs.index[strings.ToLower(key)]
	return ok
}

// Set sets the entry associated with the key to values, replacing any
// previous entry. A new key is appended at the end, preserving the existing
// insertion order of every other key.
func (hs *Headers) Set(key string, values ...string) {
	lk := strings.ToLower(key)
	if i, ok := hs.index[lk]; ok {
		hs.entries[i].Values = values
		return
	}

	hs.index[lk] = len(hs.entries)
	hs.entries = append(hs.entries, Header{Name: key, Values: values})
}

// Append appends value to the entries associated with the key, creating the
// entry if necessary.
func (hs *Headers) Append(key, value string) {
	lk := strings.ToLower(key)
	if i, ok := hs.index[lk]; ok {
		hs.entries[i].Values = append(hs.entries[i].Values, value)
		return
	}

	hs.Set(key, value)
}

// Delete removes the entry associated with the key, if any.
func (hs *Headers) Delete(key string) {
	lk := strings.ToLower(key)
	i, ok := hs.index[lk]
	if !ok {
		return
	}

	hs.entries = append(hs.entries[:i], hs.entries[i+1:]...)
	delete(hs.index, lk)

	for k, idx := range hs.index {
		if idx > i {
			hs.index[k] = idx - 1
		}
	}
}

// Each calls f once for every header, in insertion order.
func (hs *Headers) Each(f func(name string, values []string)) {
	if hs == nil {
		return
	}

	for _, e := range hs.entries {
		f(e.Name, e.Values)
	}
}

// Len returns the number of distinct header names set.
func (hs *Headers) Len() int {
	if hs == nil {
		return 0
	}

	return len(hs.entries)
}

// Reset empties the hs, retaining its backing storage for reuse.
func (hs *Headers) Reset() {
	hs.entries = hs.entries[:0]
	for k := range hs.index {
		delete(hs.index, k)
	}
}
