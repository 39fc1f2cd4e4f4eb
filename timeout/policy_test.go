// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"testing"
	"time"

	"github.com/gogama/pipex/request"
	"github.com/stretchr/testify/assert"
)

func req(method string, d time.Duration) *request.Request {
	return &request.Request{Method: method, Timeout: d}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, time.Duration(0), DefaultPolicy.Timeout(req("GET", 0)))
	assert.Equal(t, time.Second, DefaultPolicy.Timeout(req("GET", time.Second)))
}

func TestInfinite(t *testing.T) {
	assert.Equal(t, time.Duration(0), Infinite.Timeout(req("GET", 0)))
	assert.Equal(t, time.Duration(0), Infinite.Timeout(req("GET", time.Hour)))
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	assert.Equal(t, 33*time.Hour, p.Timeout(req("GET", 0)))
	assert.Equal(t, 33*time.Hour, p.Timeout(req("GET", -1)))
	assert.Equal(t, 2*time.Second, p.Timeout(req("GET", 2*time.Second)))
	assert.Equal(t, 33*time.Hour, p.Timeout(nil))
}

func TestByMethod(t *testing.T) {
	p := ByMethod(Fixed(5*time.Millisecond), map[string]time.Duration{
		"post": 10 * time.Millisecond,
		"PUT":  100 * time.Millisecond,
	})
	assert.Equal(t, 5*time.Millisecond, p.Timeout(req("GET", 0)))
	assert.Equal(t, 10*time.Millisecond, p.Timeout(req("POST", 0)))
	assert.Equal(t, 100*time.Millisecond, p.Timeout(req("put", 0)))
	assert.Equal(t, time.Second, p.Timeout(req("POST", time.Second)))
	assert.PanicsWithValue(t, "pipex/timeout: nil fallback", func() {
		ByMethod(nil, nil)
	})
}

func TestPolicyFunc(t *testing.T) {
	p := PolicyFunc(func(r *request.Request) time.Duration {
		return time.Duration(len(r.URL)) * time.Second
	})
	assert.Equal(t, 3*time.Second, p.Timeout(&request.Request{URL: "abc"}))
}
