// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package config loads pipex client configuration from a YAML file and the
environment.

Values are applied in order: built-in defaults, then the YAML file, then
environment variables named after the env tags of the File fields and
prefixed with "PIPEX", for example PIPEX_BASE_URL or PIPEX_RETRY_RETRIES.

An example file:

	baseURL: https://api.example.com
	timeoutMs: 5000
	responseType: json
	headers:
	  Accept: application/json
	retry:
	  retries: 3
	  backoff: exponential
	  delayMs: 100
	  maxDelayMs: 2000
	rateLimit:
	  rps: 10
	  burst: 5
	log:
	  level: debug
*/
package config
