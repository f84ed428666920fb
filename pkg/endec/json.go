package endec

import (
	"bytes"
	"encoding/json"
	"io"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// JSONContentType is the MIME type of JSON payloads.
const JSONContentType = "application/json"

// JSONEndec encodes with encoding/json. Numbers decode as json.Number so
// integer ids and error codes keep their integer-ness.
type JSONEndec struct{}

var _ Endec = JSONEndec{}

// NewJSON creates a JSON encoder/decoder.
func NewJSON() JSONEndec {
	return JSONEndec{}
}

// Encode implements Endec.
func (JSONEndec) Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, jerrors.EncodingFailure("json encode", err)
	}
	return data, nil
}

// Decode implements Endec.
func (e JSONEndec) Decode(data []byte) (interface{}, error) {
	var v interface{}
	if err := e.DecodeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto implements Endec. Trailing data after the first value is an
// error.
func (JSONEndec) DecodeInto(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return jerrors.EncodingFailure("json decode", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return jerrors.EncodingFailure("json decode", errTrailingData)
	}
	return nil
}

// ContentType implements Endec.
func (JSONEndec) ContentType() string {
	return JSONContentType
}
