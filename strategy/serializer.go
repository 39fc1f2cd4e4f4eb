// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"encoding/json"
	"mime"
	"net/url"
	"strings"

	"github.com/gogama/pipex/request"
	"gopkg.in/yaml.v3"
)

// Content types produced and recognized by the default strategies.
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// A BodySerializer converts a request body into bytes.
//
// The returned content type is set as the Content-Type header of the
// outgoing request unless the request already has one. An empty content
// type leaves the header alone. Errors are reported to the caller as
// errors of kind request.KindSerialize.
type BodySerializer interface {
	Serialize(req *request.Request) (body []byte, contentType string, err error)
}

// BodySerializerFunc adapts an ordinary function to the BodySerializer
// interface.
type BodySerializerFunc func(req *request.Request) ([]byte, string, error)

// Serialize calls f(req).
func (f BodySerializerFunc) Serialize(req *request.Request) ([]byte, string, error) {
	return f(req)
}

// DefaultBodySerializer serializes request bodies as follows:
//
// • nil bodies produce no body;
//
// • raw bodies (string, []byte, io.Reader) are sent as is with no
// content type;
//
// • url.Values bodies are form-encoded;
//
// • any other value is marshaled as YAML if the request's Content-Type
// header names a YAML media type, and as JSON otherwise.
type DefaultBodySerializer struct{}

// Serialize serializes req's body.
func (DefaultBodySerializer) Serialize(req *request.Request) ([]byte, string, error) {
	switch body := req.Body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return []byte(body.Encode()), ContentTypeForm, nil
	case map[string][]string:
		return []byte(url.Values(body).Encode()), ContentTypeForm, nil
	}
	if request.IsRaw(req.Body) {
		b, err := request.BodyBytes(req.Body)
		return b, "", err
	}
	if IsYAML(req.Header.Get("Content-Type")) {
		b, err := yaml.Marshal(req.Body)
		if err != nil {
			return nil, "", err
		}
		return b, ContentTypeYAML, nil
	}
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", err
	}
	return b, ContentTypeJSON, nil
}

// IsJSON reports whether contentType names a JSON media type, including
// structured syntax suffixes such as "application/problem+json".
func IsJSON(contentType string) bool {
	t := mediaType(contentType)
	return t == ContentTypeJSON || t == "text/json" || strings.HasSuffix(t, "+json")
}

// IsYAML reports whether contentType names a YAML media type.
func IsYAML(contentType string) bool {
	switch t := mediaType(contentType); t {
	case ContentTypeYAML, "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	default:
		return strings.HasSuffix(t, "+yaml")
	}
}

// IsText reports whether contentType names a textual media type.
func IsText(contentType string) bool {
	t := mediaType(contentType)
	return strings.HasPrefix(t, "text/") ||
		t == "application/xml" || strings.HasSuffix(t, "+xml") ||
		t == "application/javascript"
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	t, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return t
}
