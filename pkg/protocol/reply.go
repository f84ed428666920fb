package protocol

import (
	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// decodedReply is a reply DTO after structural decoding: exactly one of
// successReply or errorReply. Malformed DTOs never get this far.
type decodedReply interface {
	replyID() interface{}
}

type successReply struct {
	id     interface{}
	result interface{}
}

func (r successReply) replyID() interface{} { return r.id }

type errorReply struct {
	id      interface{}
	code    int
	message string
	data    interface{}
}

func (r errorReply) replyID() interface{} { return r.id }

func (r errorReply) fault() error {
	return jerrors.NewRPCFault(r.code, r.message, r.data)
}

// decodeReply classifies a JSON-RPC 1.0 reply DTO. Checks run in wire-rule
// order and the first failure wins.
func decodeReply(dto interface{}) (decodedReply, error) {
	obj, ok := asObject(dto)
	if !ok {
		return nil, jerrors.InvalidResponse("Incorrect response type detected. An object expected, %s detected.", typeName(dto))
	}

	id, ok := obj["id"]
	if !ok {
		return nil, jerrors.InvalidResponse("Response id not defined.")
	}
	if id != nil {
		if _, isString := id.(string); !isString && !isInteger(id) {
			return nil, jerrors.InvalidResponse("Invalid response id type. Response id must be integer, string or null, %s detected.", typeName(id))
		}
	}

	result, hasResult := obj["result"]
	rpcErr, hasError := obj["error"]
	if !hasResult && !hasError {
		return nil, jerrors.InvalidResponse("Error object or result not found in response.")
	}

	// A null error is how 1.0 servers say "no error".
	if hasError && rpcErr != nil {
		reply, err := decodeErrorObject(rpcErr)
		if err != nil {
			return nil, err
		}
		reply.id = id
		return reply, nil
	}
	if hasResult {
		return successReply{id: id, result: result}, nil
	}
	return nil, jerrors.InvalidResponse("Incorrect error object detected. An object expected, nil detected.")
}

func decodeErrorObject(v interface{}) (errorReply, error) {
	obj, ok := asObject(v)
	if !ok {
		return errorReply{}, jerrors.InvalidResponse("Incorrect error object detected. An object expected, %s detected.", typeName(v))
	}

	rawCode, ok := obj["code"]
	if !ok {
		return errorReply{}, jerrors.InvalidResponse("Response error code is not defined.")
	}
	code, ok := toInt64(rawCode)
	if !ok {
		return errorReply{}, jerrors.InvalidResponse("Response error code must be an integer, %s detected.", typeName(rawCode))
	}

	rawMessage, ok := obj["message"]
	if !ok {
		return errorReply{}, jerrors.InvalidResponse("Response error message is not defined.")
	}
	message, ok := rawMessage.(string)
	if !ok {
		return errorReply{}, jerrors.InvalidResponse("Response error message must be a string, %s detected.", typeName(rawMessage))
	}

	return errorReply{code: int(code), message: message, data: obj["data"]}, nil
}
