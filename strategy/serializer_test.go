// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gogama/pipex/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBodySerializer_Serialize(t *testing.T) {
	testCases := []struct {
		name   string
		body   interface{}
		header http.Header
		want   string
		ct     string
		err    bool
	}{
		{name: "nil"},
		{name: "string", body: "plain", want: "plain"},
		{name: "bytes", body: []byte("raw"), want: "raw"},
		{name: "form", body: url.Values{"a": {"1"}}, want: "a=1", ct: ContentTypeForm},
		{name: "json", body: map[string]int{"a": 1}, want: `{"a":1}`, ct: ContentTypeJSON},
		{
			name:   "yaml",
			body:   map[string]int{"a": 1},
			header: http.Header{"Content-Type": {"application/yaml"}},
			want:   "a: 1\n",
			ct:     ContentTypeYAML,
		},
		{name: "unmarshalable", body: map[string]interface{}{"f": func() {}}, err: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, err := request.New("POST", "x", testCase.body)
			require.NoError(t, err)
			if testCase.header != nil {
				r = r.With(request.Overrides{Header: testCase.header})
			}
			b, ct, err := DefaultBodySerializer{}.Serialize(r)
			if testCase.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, string(b))
			assert.Equal(t, testCase.ct, ct)
		})
	}
}

func TestMediaTypes(t *testing.T) {
	assert.True(t, IsJSON("application/json; charset=utf-8"))
	assert.True(t, IsJSON("application/problem+json"))
	assert.False(t, IsJSON("text/plain"))
	assert.True(t, IsYAML("application/x-yaml"))
	assert.True(t, IsYAML("text/yaml"))
	assert.False(t, IsYAML("application/json"))
	assert.True(t, IsText("text/html; charset=utf-8"))
	assert.True(t, IsText("application/atom+xml"))
	assert.False(t, IsText("application/octet-stream"))
	assert.False(t, IsText(""))
}
