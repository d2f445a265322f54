package docdb

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Kind identifies which variant a [Node] holds.
type Kind uint8

// Node kinds. The zero Kind is KindNull.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Node is one value of a document: null, bool, number, string, array or
// object. The zero Node is null.
//
// Numbers are float64, matching what both JSON and YAML documents can carry
// without loss for the values docdb produces.
//
// Arrays and objects are reference-like: copying a Node does not copy its
// elements. Use [Node.Clone] for an independent copy.
type Node struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Node
	obj  *Object
}

// Null returns the null node.
func Null() Node { return Node{} }

// Bool returns a boolean node.
func Bool(v bool) Node { return Node{kind: KindBool, b: v} }

// Number returns a number node.
func Number(v float64) Node { return Node{kind: KindNumber, n: v} }

// String returns a string node.
func String(v string) Node { return Node{kind: KindString, s: v} }

// Array returns an array node holding items. The slice is not copied.
func Array(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}

	return Node{kind: KindArray, arr: items}
}

// ObjectNode returns an object node for o. A nil o yields an empty object.
func ObjectNode(o *Object) Node {
	if o == nil {
		o = NewObject()
	}

	return Node{kind: KindObject, obj: o}
}

// Kind returns the variant held by n.
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether n is null.
func (n Node) IsNull() bool { return n.kind == KindNull }

// AsBool returns the boolean value and whether n is a bool.
func (n Node) AsBool() (bool, bool) { return n.b, n.kind == KindBool }

// AsNumber returns the numeric value and whether n is a number.
func (n Node) AsNumber() (float64, bool) { return n.n, n.kind == KindNumber }

// AsString returns the string value and whether n is a string.
func (n Node) AsString() (string, bool) { return n.s, n.kind == KindString }

// AsArray returns the elements and whether n is an array.
// The returned slice aliases the node's storage.
func (n Node) AsArray() ([]Node, bool) { return n.arr, n.kind == KindArray }

// AsObject returns the object and whether n is an object.
func (n Node) AsObject() (*Object, bool) { return n.obj, n.kind == KindObject }

// Equal reports deep equality. Array order matters, object key order does not.
// NaN numbers compare equal to each other.
func (n Node) Equal(other Node) bool {
	if n.kind != other.kind {
		return false
	}

	switch n.kind {
	case KindNull:
		return true
	case KindBool:
		return n.b == other.b
	case KindNumber:
		return n.n == other.n || (math.IsNaN(n.n) && math.IsNaN(other.n))
	case KindString:
		return n.s == other.s
	case KindArray:
		return slices.EqualFunc(n.arr, other.arr, Node.Equal)
	case KindObject:
		return n.obj.Equal(other.obj)
	default:
		return false
	}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	switch n.kind {
	case KindArray:
		items := make([]Node, len(n.arr))
		for i, item := range n.arr {
			items[i] = item.Clone()
		}

		return Node{kind: KindArray, arr: items}
	case KindObject:
		return Node{kind: KindObject, obj: n.obj.Clone()}
	default:
		return n
	}
}

// String renders n as compact JSON. Non-finite numbers render as null.
func (n Node) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}

	return string(b)
}

// Any converts n to plain Go values: nil, bool, float64, string, []any and
// map[string]any. Object key order is lost.
func (n Node) Any() any {
	switch n.kind {
	case KindBool:
		return n.b
	case KindNumber:
		return n.n
	case KindString:
		return n.s
	case KindArray:
		out := make([]any, len(n.arr))
		for i, item := range n.arr {
			out[i] = item.Any()
		}

		return out
	case KindObject:
		out := make(map[string]any, n.obj.Len())
		for key, val := range n.obj.All() {
			out[key] = val.Any()
		}

		return out
	default:
		return nil
	}
}

// FromAny converts plain Go values to a Node.
//
// Supported: nil, bool, all integer and float types, string, []any, []string,
// map[string]any (keys sorted, since Go maps have no order), *Object and Node.
func FromAny(v any) (Node, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case Node:
		return val, nil
	case *Object:
		return ObjectNode(val), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(float64(val)), nil
	case int:
		return Number(float64(val)), nil
	case int8:
		return Number(float64(val)), nil
	case int16:
		return Number(float64(val)), nil
	case int32:
		return Number(float64(val)), nil
	case int64:
		return Number(float64(val)), nil
	case uint:
		return Number(float64(val)), nil
	case uint8:
		return Number(float64(val)), nil
	case uint16:
		return Number(float64(val)), nil
	case uint32:
		return Number(float64(val)), nil
	case uint64:
		return Number(float64(val)), nil
	case []string:
		items := make([]Node, len(val))
		for i, s := range val {
			items[i] = String(s)
		}

		return Array(items...), nil
	case []any:
		items := make([]Node, len(val))

		for i, item := range val {
			node, err := FromAny(item)
			if err != nil {
				return Node{}, err
			}

			items[i] = node
		}

		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		obj := NewObject()

		for _, key := range keys {
			node, err := FromAny(val[key])
			if err != nil {
				return Node{}, err
			}

			obj.Set(key, node)
		}

		return ObjectNode(obj), nil
	default:
		return Node{}, wrap(ErrInvalidValue, fmt.Errorf("unsupported type %T", v))
	}
}

// MustFromAny is like [FromAny] but panics on unsupported types.
// Intended for tests and literals.
func MustFromAny(v any) Node {
	node, err := FromAny(v)
	if err != nil {
		panic(err)
	}

	return node
}

// TypeTag is the type name reported by [DB.Type].
type TypeTag string

// Type tags. Arrays are distinguished from objects.
const (
	TypeString    TypeTag = "string"
	TypeNumber    TypeTag = "number"
	TypeBoolean   TypeTag = "boolean"
	TypeObject    TypeTag = "object"
	TypeArray     TypeTag = "array"
	TypeNull      TypeTag = "null"
	TypeUndefined TypeTag = "undefined"
)

// Tag returns the type tag of n.
func (n Node) Tag() TypeTag {
	switch n.kind {
	case KindBool:
		return TypeBoolean
	case KindNumber:
		return TypeNumber
	case KindString:
		return TypeString
	case KindArray:
		return TypeArray
	case KindObject:
		return TypeObject
	default:
		return TypeNull
	}
}
