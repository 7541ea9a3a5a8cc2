package message

import "strings"

// Field is a single header line.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header mapping. Names and values are trimmed of
// surrounding whitespace, case is preserved, lookups are case-sensitive, and a
// repeated name overwrites the earlier value in place.
type Header struct {
	fields []Field
	index  map[string]int
}

// Set stores value under name, replacing any previous value.
func (h *Header) Set(name, value string) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if i, ok := h.index[name]; ok {
		h.fields[i].Value = value
		return
	}
	if h.index == nil {
		h.index = make(map[string]int)
	}
	h.index[name] = len(h.fields)
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Del removes name. Removing an absent name is a no-op.
func (h *Header) Del(name string) {
	name = strings.TrimSpace(name)
	i, ok := h.index[name]
	if !ok {
		return
	}
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	delete(h.index, name)
	for j := i; j < len(h.fields); j++ {
		h.index[h.fields[j].Name] = j
	}
}

// Get returns the value stored under name.
func (h *Header) Get(name string) (string, bool) {
	i, ok := h.index[strings.TrimSpace(name)]
	if !ok {
		return "", false
	}
	return h.fields[i].Value, true
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	_, ok := h.index[strings.TrimSpace(name)]
	return ok
}

// Len returns the number of header fields.
func (h *Header) Len() int {
	return len(h.fields)
}

// Fields returns a copy of the fields in wire order.
func (h *Header) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// lookupFold returns the value of the first field whose name matches name
// case-insensitively. It is used for framing headers only.
func (h *Header) lookupFold(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (h *Header) clone() Header {
	c := Header{fields: h.Fields()}
	if h.index != nil {
		c.index = make(map[string]int, len(h.index))
		for k, v := range h.index {
			c.index[k] = v
		}
	}
	return c
}
