// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gogama/pipex/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func echoServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Echo", r.Header.Get("X-Echo"))
		_, _ = w.Write(b)
	}))
}

func TestHTTPTransport_Send(t *testing.T) {
	server := echoServer()
	defer server.Close()
	u, err := url.Parse(server.URL + "/x")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		tr := &HTTPTransport{HTTPDoer: server.Client()}
		resp, err := tr.Send(context.Background(), &Outgoing{
			Method: "PUT",
			URL:    u,
			Header: http.Header{"X-Echo": {"ham"}},
			Body:   []byte("eggs"),
		})
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "eggs", string(b))
		assert.Equal(t, "PUT", resp.Header.Get("X-Method"))
		assert.Equal(t, "ham", resp.Header.Get("X-Echo"))
	})
	t.Run("progress", func(t *testing.T) {
		var up, down []int64
		var upTotal, downTotal int64
		tr := &HTTPTransport{}
		resp, err := tr.Send(context.Background(), &Outgoing{
			Method: "POST",
			URL:    u,
			Body:   []byte("0123456789"),
			Meta: map[string]interface{}{
				request.MetaUploadProgress: request.ProgressFunc(func(done, total int64) {
					up = append(up, done)
					upTotal = total
				}),
				request.MetaDownloadProgress: func(done, total int64) {
					down = append(down, done)
					downTotal = total
				},
			},
		})
		require.NoError(t, err)
		_, err = io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.NotEmpty(t, up)
		require.NotEmpty(t, down)
		assert.Equal(t, int64(10), up[len(up)-1])
		assert.Equal(t, int64(10), upTotal)
		assert.Equal(t, int64(10), down[len(down)-1])
		assert.Equal(t, int64(10), downTotal)
	})
	t.Run("doer error", func(t *testing.T) {
		expectedErr := errors.New("foo")
		m := &mockHTTPDoer{}
		m.Test(t)
		m.On("Do", mock.Anything).Return(nil, expectedErr).Once()
		tr := &HTTPTransport{HTTPDoer: m}
		resp, err := tr.Send(context.Background(), &Outgoing{Method: "GET", URL: u})
		assert.Nil(t, resp)
		assert.Same(t, expectedErr, err)
		m.AssertExpectations(t)
	})
	t.Run("bad method", func(t *testing.T) {
		tr := &HTTPTransport{}
		_, err := tr.Send(context.Background(), &Outgoing{Method: "BAD METHOD", URL: u})
		assert.Error(t, err)
	})
}

func TestHTTPTransport_CloseIdleConnections(t *testing.T) {
	t.Run("not IdleCloser", func(t *testing.T) {
		m := &mockHTTPDoer{}
		m.Test(t)
		tr := &HTTPTransport{HTTPDoer: m}
		tr.CloseIdleConnections()
		m.AssertExpectations(t)
	})
	t.Run("IdleCloser", func(t *testing.T) {
		m := &mockHTTPDoerIdleCloser{}
		m.Test(t)
		m.On("CloseIdleConnections").Once()
		tr := &HTTPTransport{HTTPDoer: m}
		tr.CloseIdleConnections()
		m.AssertExpectations(t)
	})
	t.Run("nil", func(t *testing.T) {
		var tr *HTTPTransport
		assert.Same(t, http.DefaultClient, tr.doer())
	})
}

type mockHTTPDoer struct {
	mock.Mock
}

func (m *mockHTTPDoer) Do(r *http.Request) (*http.Response, error) {
	args := m.Called(r)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

type mockHTTPDoerIdleCloser struct {
	mockHTTPDoer
}

func (m *mockHTTPDoerIdleCloser) CloseIdleConnections() {
	m.Called()
}
