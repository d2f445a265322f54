package docdb

import (
	"iter"
	"slices"
)

// Object is a string-keyed map that remembers insertion order.
//
// Setting an existing key keeps its position. Deleting a key removes it from
// the order. The zero value is not usable; call [NewObject].
type Object struct {
	keys []string
	vals map[string]Node
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Node)}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}

	return len(o.keys)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}

	_, ok := o.vals[key]

	return ok
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (Node, bool) {
	if o == nil {
		return Node{}, false
	}

	val, ok := o.vals[key]

	return val, ok
}

// Set stores val under key.
func (o *Object) Set(key string, val Node) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.vals[key] = val
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, ok := o.vals[key]; !ok {
		return false
	}

	delete(o.vals, key)

	idx := slices.Index(o.keys, key)
	o.keys = slices.Delete(o.keys, idx, idx+1)

	return true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}

	return slices.Clone(o.keys)
}

// All iterates over key/value pairs in insertion order.
func (o *Object) All() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		if o == nil {
			return
		}

		for _, key := range o.keys {
			if !yield(key, o.vals[key]) {
				return
			}
		}
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	out := NewObject()

	for key, val := range o.All() {
		out.Set(key, val.Clone())
	}

	return out
}

// Equal reports whether both objects hold equal values under the same keys.
// Key order is ignored.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}

	for key, val := range o.All() {
		otherVal, ok := other.Get(key)
		if !ok || !val.Equal(otherVal) {
			return false
		}
	}

	return true
}
