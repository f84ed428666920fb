package endec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// CBORContentType is the MIME type of CBOR payloads.
const CBORContentType = "application/cbor"

// CBOREndec encodes with CBOR. Map keys are sorted on encode; maps decode as
// map[string]interface{}.
type CBOREndec struct {
	marshal   func(v interface{}) ([]byte, error)
	unmarshal func(data []byte, v interface{}) error
}

var _ Endec = (*CBOREndec)(nil)

// NewCBOR creates a CBOR encoder/decoder.
func NewCBOR() (*CBOREndec, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBOREndec{marshal: em.Marshal, unmarshal: dm.Unmarshal}, nil
}

// Encode implements Endec.
func (e *CBOREndec) Encode(v interface{}) ([]byte, error) {
	data, err := e.marshal(v)
	if err != nil {
		return nil, jerrors.EncodingFailure("cbor encode", err)
	}
	return data, nil
}

// Decode implements Endec.
func (e *CBOREndec) Decode(data []byte) (interface{}, error) {
	var v interface{}
	if err := e.DecodeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto implements Endec.
func (e *CBOREndec) DecodeInto(data []byte, v interface{}) error {
	if err := e.unmarshal(data, v); err != nil {
		return jerrors.EncodingFailure("cbor decode", err)
	}
	return nil
}

// ContentType implements Endec.
func (e *CBOREndec) ContentType() string {
	return CBORContentType
}
