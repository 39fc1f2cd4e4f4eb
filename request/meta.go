// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

// Reserved request metadata keys consumed by built-in components.
const (
	// MetaRetry overrides the retry middleware's configured retry count
	// for one call. The value may be an int (number of retries), the
	// bool false (disable retries), or a retry.Override.
	MetaRetry = "pipex.retry"

	// MetaResponseType overrides the decoder's response type for one
	// call. The value is a ResponseType.
	MetaResponseType = "pipex.responseType"

	// MetaUploadProgress holds a ProgressFunc invoked as the request
	// body is written by the transport.
	MetaUploadProgress = "pipex.uploadProgress"

	// MetaDownloadProgress holds a ProgressFunc invoked as the response
	// body is read. It is only invoked when the response carries a
	// Content-Length.
	MetaDownloadProgress = "pipex.downloadProgress"
)

// A ProgressFunc receives the number of bytes transferred so far and
// the total number of bytes expected.
type ProgressFunc func(done, total int64)

// A ResponseType tells the response decoder how to interpret a response
// body.
type ResponseType string

const (
	// ResponseAuto chooses a response type from the Content-Type header.
	ResponseAuto ResponseType = ""
	// ResponseJSON decodes the body as JSON into an interface{} tree.
	ResponseJSON ResponseType = "json"
	// ResponseYAML decodes the body as YAML into an interface{} tree.
	ResponseYAML ResponseType = "yaml"
	// ResponseText decodes the body as a string.
	ResponseText ResponseType = "text"
	// ResponseBytes exposes the body as a []byte. The names "blob" and
	// "arrayBuffer" are accepted by ParseResponseType as aliases.
	ResponseBytes ResponseType = "bytes"
	// ResponseRaw leaves Data nil; the payload is only available via
	// Response.Body and Response.Raw.
	ResponseRaw ResponseType = "raw"
)

// ParseResponseType parses a response type name.
func ParseResponseType(s string) (ResponseType, bool) {
	switch s {
	case "", "auto":
		return ResponseAuto, true
	case "json":
		return ResponseJSON, true
	case "yaml":
		return ResponseYAML, true
	case "text":
		return ResponseText, true
	case "bytes", "blob", "arrayBuffer":
		return ResponseBytes, true
	case "raw":
		return ResponseRaw, true
	default:
		return ResponseAuto, false
	}
}
