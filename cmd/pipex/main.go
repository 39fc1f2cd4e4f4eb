// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command pipex sends HTTP requests through a pipex client configured
// from a YAML file and the environment.
//
// Usage:
//
//	pipex request [flags] METHOD URL
//	pipex config [flags]
//	pipex jwt TOKEN
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
