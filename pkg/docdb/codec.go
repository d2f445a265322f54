package docdb

import "fmt"

// Format names a document serialization.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Codec converts between a document root and its serialized bytes.
//
// Decode must preserve key order. Empty (or whitespace-only) input decodes to
// an empty object. A root that is not an object is a decode error.
type Codec interface {
	// Name returns the format name ("json", "yaml").
	Name() Format

	// Ext returns the file extension including the dot.
	Ext() string

	Decode(data []byte) (*Object, error)
	Encode(root *Object) ([]byte, error)
}

// CodecFor returns the built-in codec for format.
func CodecFor(format Format) (Codec, error) {
	switch format {
	case FormatJSON, "":
		return JSONCodec{}, nil
	case FormatYAML, "yml":
		return YAMLCodec{}, nil
	default:
		return nil, wrap(ErrInvalidOption, fmt.Errorf("unknown format %q (want json or yaml)", format))
	}
}
