package docdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/tailscale/hujson"
)

// JSONCodec reads JSON (comments and trailing commas allowed) and writes JSON
// indented with four spaces.
type JSONCodec struct{}

func (JSONCodec) Name() Format { return FormatJSON }

func (JSONCodec) Ext() string { return ".json" }

func (JSONCodec) Decode(data []byte) (*Object, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewObject(), nil
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, wrap(ErrDecode, err)
	}

	root, err := decodeJSON(std)
	if err != nil {
		return nil, wrap(ErrDecode, err)
	}

	obj, ok := root.AsObject()
	if !ok {
		return nil, wrap(ErrDecode, fmt.Errorf("document root is %s, want object", root.Kind()))
	}

	return obj, nil
}

func (JSONCodec) Encode(root *Object) ([]byte, error) {
	var compact bytes.Buffer

	err := writeJSON(&compact, ObjectNode(root))
	if err != nil {
		return nil, wrap(ErrEncode, err)
	}

	var out bytes.Buffer

	err = json.Indent(&out, compact.Bytes(), "", "    ")
	if err != nil {
		return nil, wrap(ErrEncode, err)
	}

	return out.Bytes(), nil
}

// MarshalJSON renders n as compact JSON with key order preserved.
// Non-finite numbers render as null.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	err := writeJSON(&buf, n)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalJSON parses any JSON value into n, preserving key order.
func (n *Node) UnmarshalJSON(data []byte) error {
	node, err := decodeJSON(data)
	if err != nil {
		return err
	}

	*n = node

	return nil
}

// ParseJSON parses a single JSON value.
func ParseJSON(data []byte) (Node, error) {
	return decodeJSON(data)
}

func decodeJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := decodeJSONValue(dec)
	if err != nil {
		return Node{}, err
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return Node{}, errors.New("unexpected data after top-level value")
	}

	return node, nil
}

func decodeJSONValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Node{}, io.ErrUnexpectedEOF
		}

		return Node{}, err
	}

	switch val := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Node{}, fmt.Errorf("number %s: %w", val, err)
		}

		return Number(f), nil
	case json.Delim:
		switch val {
		case '{':
			obj := NewObject()

			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Node{}, err
				}

				key, _ := keyTok.(string)

				item, err := decodeJSONValue(dec)
				if err != nil {
					return Node{}, err
				}

				obj.Set(key, item)
			}

			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}

			return ObjectNode(obj), nil
		case '[':
			items := []Node{}

			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Node{}, err
				}

				items = append(items, item)
			}

			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}

			return Array(items...), nil
		}
	}

	return Node{}, fmt.Errorf("unexpected token %v", tok)
}

// writeJSON writes n as compact JSON. HTML characters are not escaped.
func writeJSON(buf *bytes.Buffer, n Node) error {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.b))
	case KindNumber:
		if math.IsNaN(n.n) || math.IsInf(n.n, 0) {
			buf.WriteString("null")

			return nil
		}

		b, err := json.Marshal(n.n)
		if err != nil {
			return err
		}

		buf.Write(b)
	case KindString:
		return writeJSONString(buf, n.s)
	case KindArray:
		buf.WriteByte('[')

		for i, item := range n.arr {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}

		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')

		first := true

		for key, val := range n.obj.All() {
			if !first {
				buf.WriteByte(',')
			}

			first = false

			if err := writeJSONString(buf, key); err != nil {
				return err
			}

			buf.WriteByte(':')

			if err := writeJSON(buf, val); err != nil {
				return err
			}
		}

		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %s", n.kind)
	}

	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return err
	}

	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)

	return nil
}
