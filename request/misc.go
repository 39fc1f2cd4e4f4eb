// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
)

const badBodyTypeMsg = "pipex/request: invalid type (for raw body use nil, " +
	"string, []byte, io.Reader or io.ReadCloser)"

// BodyBytes converts a raw body value to a byte slice.
//
// The body parameter may be nil, or it may be a string, []byte,
// io.Reader, or io.ReadCloser. The conversion logic is:
//
// • If body is nil, a nil byte slice and no error is returned.
//
// • If body is a []byte, body itself and no error is returned.
//
// • If body is a string, the built-in conversion from string to byte
// slice, and no error, is returned.
//
// • If body is an io.Reader or io.ReadCloser, the result of reading
// the whole contents of the reader (and closing it if it implements
// Closer) is returned.
//
// • If body is any other type, a nil byte slice and an error is
// returned. Callers which accept structured bodies (for example the
// JSON body serializer) check for those before calling BodyBytes.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil, noBody:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if err != nil {
			return nil, err
		}
		err = x.Close()
		if err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}

// IsRaw reports whether body is one of the raw body types understood by
// BodyBytes.
func IsRaw(body interface{}) bool {
	switch body.(type) {
	case nil, noBody, string, []byte, io.Reader:
		return true
	default:
		return false
	}
}

// bufferBody replaces streaming bodies with their buffered contents so
// that a Request can be dispatched more than once.
func bufferBody(body interface{}) (interface{}, error) {
	switch body.(type) {
	case noBody:
		return nil, nil
	case io.Reader:
		return BodyBytes(body)
	default:
		return body, nil
	}
}
