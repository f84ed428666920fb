// Package endec provides the encoders/decoders that turn request DTOs into
// wire bytes and reply bytes back into DTOs.
//
// Decoded values are generic: keyed structures come back as
// map[string]interface{}, sequences as []interface{}. The protocol package
// validates that shape; an Endec never interprets it.
package endec

import (
	"errors"
	"fmt"
	"strings"
)

// Endec encodes values to bytes and decodes bytes to generic values.
type Endec interface {
	// Encode serializes v.
	Encode(v interface{}) ([]byte, error)

	// Decode parses data into a generic value.
	Decode(data []byte) (interface{}, error)

	// DecodeInto parses data into the value pointed to by v.
	DecodeInto(data []byte, v interface{}) error

	// ContentType returns the MIME type of the encoding.
	ContentType() string
}

var errTrailingData = errors.New("unexpected data after top-level value")

// Name identifies a registered encoding.
type Name string

const (
	NameJSON Name = "json"
	NameCBOR Name = "cbor"
)

// New returns the Endec registered under name.
func New(name Name) (Endec, error) {
	switch Name(strings.ToLower(string(name))) {
	case NameJSON, "":
		return NewJSON(), nil
	case NameCBOR:
		return NewCBOR()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
