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
	"pgregory.net/rapid"
)

func incoming(status int, contentType, body string) *Incoming {
	u, _ := url.Parse("https://a.com/x")
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &Incoming{
		URL:  u,
		Raw:  &http.Response{StatusCode: status, Header: h},
		Body: []byte(body),
	}
}

func TestDefaultResponseDecoder_Decode(t *testing.T) {
	testCases := []struct {
		name    string
		decoder DefaultResponseDecoder
		meta    interface{}
		in      *Incoming
		want    interface{}
		wantErr error
	}{
		{
			name: "auto json",
			in:   incoming(200, "application/json", `{"a":[1,"b"]}`),
			want: map[string]interface{}{"a": []interface{}{1.0, "b"}},
		},
		{
			name: "auto yaml",
			in:   incoming(200, "application/yaml", "a: b\n"),
			want: map[string]interface{}{"a": "b"},
		},
		{
			name: "auto text",
			in:   incoming(200, "text/plain", "hello"),
			want: "hello",
		},
		{
			name: "auto unknown falls back to raw",
			in:   incoming(200, "application/octet-stream", "\x00\x01"),
		},
		{
			name:    "strict unknown",
			decoder: DefaultResponseDecoder{Strict: true},
			in:      incoming(200, "", "???"),
			wantErr: ErrUndeterminedType,
		},
		{
			name:    "strict empty body",
			decoder: DefaultResponseDecoder{Strict: true},
			in:      incoming(204, "", ""),
		},
		{
			name: "empty json",
			in:   incoming(200, "application/json", ""),
		},
		{
			name:    "configured type",
			decoder: DefaultResponseDecoder{Type: request.ResponseText},
			in:      incoming(200, "application/json", `{"a":1}`),
			want:    `{"a":1}`,
		},
		{
			name:    "meta type beats configured",
			decoder: DefaultResponseDecoder{Type: request.ResponseText},
			meta:    request.ResponseBytes,
			in:      incoming(200, "text/plain", "b"),
			want:    []byte("b"),
		},
		{
			name: "meta type string",
			meta: "json",
			in:   incoming(200, "text/plain", "[1]"),
			want: []interface{}{1.0},
		},
		{
			name:    "meta raw",
			decoder: DefaultResponseDecoder{Type: request.ResponseJSON},
			meta:    request.ResponseRaw,
			in:      incoming(200, "application/json", "{"),
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, err := request.New("GET", "/x", nil)
			require.NoError(t, err)
			if testCase.meta != nil {
				r = r.With(request.Overrides{Meta: map[string]interface{}{request.MetaResponseType: testCase.meta}})
			}
			resp, err := testCase.decoder.Decode(r, testCase.in)
			require.NotNil(t, resp)
			if testCase.wantErr != nil {
				assert.ErrorIs(t, err, testCase.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, resp.Data)
			assert.Equal(t, "https://a.com/x", resp.URL)
			assert.Equal(t, testCase.in.Raw.StatusCode, resp.StatusCode)
			assert.Equal(t, testCase.in.Body, resp.Body)
			assert.Same(t, testCase.in.Raw, resp.Raw)
		})
	}
	t.Run("malformed json", func(t *testing.T) {
		r, err := request.New("GET", "/x", nil)
		require.NoError(t, err)
		d := &DefaultResponseDecoder{}
		resp, err := d.Decode(r, incoming(200, "application/json", "{"))
		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Nil(t, resp.Data)
	})
}

// A JSON-representable value serialized by the default serializer and
// decoded by the default decoder is recovered unchanged.
func TestJSONRoundTrip(t *testing.T) {
	str := rapid.StringMatching(`[a-zA-Z0-9 _-]{0,12}`)
	leaf := rapid.OneOf(
		rapid.Map(str, func(s string) interface{} { return s }),
		rapid.Map(rapid.Int32(), func(i int32) interface{} { return float64(i) }),
		rapid.Map(rapid.Bool(), func(b bool) interface{} { return b }),
		rapid.Just[interface{}](nil),
	)
	value := rapid.OneOf(
		rapid.Map(rapid.MapOf(str, leaf), func(m map[string]interface{}) interface{} { return m }),
		rapid.Map(rapid.SliceOf(leaf), func(s []interface{}) interface{} { return s }),
	)
	rapid.Check(t, func(rt *rapid.T) {
		v := value.Draw(rt, "v")
		r, err := request.New("POST", "/x", v)
		if err != nil {
			rt.Fatal(err)
		}
		b, ct, err := DefaultBodySerializer{}.Serialize(r)
		if err != nil {
			rt.Fatal(err)
		}
		d := &DefaultResponseDecoder{}
		resp, err := d.Decode(r, incoming(200, ct, string(b)))
		if err != nil {
			rt.Fatal(err)
		}
		assert.Equal(rt, normalize(v), resp.Data)
	})
}

// normalize turns nil slices and maps into an untyped nil, which is
// what a JSON null decodes to.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		if x == nil {
			return nil
		}
		return x
	case []interface{}:
		if x == nil {
			return nil
		}
		return x
	}
	return v
}
