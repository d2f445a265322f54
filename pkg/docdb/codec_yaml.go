package docdb

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// maxYAMLDepth bounds nesting, including through aliases, while decoding.
const maxYAMLDepth = 10000

// Alias expansion may produce at most minYAMLNodes, or yamlNodesPerByte nodes
// per input byte, whichever is larger.
const (
	minYAMLNodes     = 10000
	yamlNodesPerByte = 100
)

var errYAMLAliasing = errors.New("document expands to too many nodes (excessive aliasing)")

// YAMLCodec reads and writes YAML documents indented with two spaces.
//
// Integers and floats both decode to numbers. Timestamps and binary scalars
// decode to their string form.
type YAMLCodec struct{}

func (YAMLCodec) Name() Format { return FormatYAML }

func (YAMLCodec) Ext() string { return ".yml" }

func (YAMLCodec) Decode(data []byte) (*Object, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewObject(), nil
	}

	var doc yaml.Node

	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, wrap(ErrDecode, err)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewObject(), nil
	}

	dec := &yamlDecoder{budget: max(minYAMLNodes, yamlNodesPerByte*len(data))}

	root, err := dec.fromYAML(doc.Content[0], 0)
	if err != nil {
		return nil, wrap(ErrDecode, err)
	}

	obj, ok := root.AsObject()
	if !ok {
		return nil, wrap(ErrDecode, fmt.Errorf("document root is %s, want object", root.Kind()))
	}

	return obj, nil
}

func (YAMLCodec) Encode(root *Object) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	err := enc.Encode(toYAML(ObjectNode(root)))
	if err != nil {
		return nil, wrap(ErrEncode, err)
	}

	err = enc.Close()
	if err != nil {
		return nil, wrap(ErrEncode, err)
	}

	return buf.Bytes(), nil
}

// yamlDecoder converts a yaml.Node tree, counting every node it produces so
// nested aliases cannot expand without bound.
type yamlDecoder struct {
	budget int
	count  int
}

func (d *yamlDecoder) fromYAML(n *yaml.Node, depth int) (Node, error) {
	if depth > maxYAMLDepth {
		return Node{}, errors.New("document nested too deeply")
	}

	d.count++
	if d.count > d.budget {
		return Node{}, errYAMLAliasing
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}

		return d.fromYAML(n.Content[0], depth+1)
	case yaml.AliasNode:
		return d.fromYAML(n.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]Node, 0, len(n.Content))

		for _, child := range n.Content {
			item, err := d.fromYAML(child, depth+1)
			if err != nil {
				return Node{}, err
			}

			items = append(items, item)
		}

		return Array(items...), nil
	case yaml.MappingNode:
		obj := NewObject()

		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]

			val, err := d.fromYAML(valNode, depth+1)
			if err != nil {
				return Node{}, err
			}

			if keyNode.ShortTag() == "!!merge" {
				merged, ok := val.AsObject()
				if !ok {
					return Node{}, fmt.Errorf("line %d: merge value is not a mapping", keyNode.Line)
				}

				for key, v := range merged.All() {
					if !obj.Has(key) {
						obj.Set(key, v)
					}
				}

				continue
			}

			obj.Set(keyNode.Value, val)
		}

		return ObjectNode(obj), nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	default:
		return Node{}, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func scalarFromYAML(n *yaml.Node) (Node, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Node{}, err
		}

		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Number(float64(i)), nil
		}

		var f float64
		if err := n.Decode(&f); err != nil {
			return Node{}, err
		}

		return Number(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Node{}, err
		}

		return Number(f), nil
	default:
		return String(n.Value), nil
	}
}

func toYAML(n Node) *yaml.Node {
	switch n.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.b)}
	case KindNumber:
		return numberToYAML(n.n)
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.s}
	case KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.arr {
			seq.Content = append(seq.Content, toYAML(item))
		}

		return seq
	case KindObject:
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for key, val := range n.obj.All() {
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				toYAML(val),
			)
		}

		return mapping
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// maxSafeInteger is the largest integer a float64 represents exactly.
const maxSafeInteger = 1<<53 - 1

func numberToYAML(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}
	case math.IsInf(f, 1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}
	case math.IsInf(f, -1):
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}
	case f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(f), 10)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
	}
}
